package core

// decode.go turns raw upload bytes into UTF-8 text before tokenizing.
//
// Exports from point-of-sale and payroll tools arrive in a handful of
// encodings. Detection order:
//
//  1. UTF-8 BOM          -> stripped, utf-8
//  2. UTF-16 LE/BE BOM   -> decoded, utf-16le / utf-16be
//  3. valid UTF-8        -> as-is
//  4. anything else      -> decoded as Windows-1252 (superset of Latin-1)
//
// NUL bytes outside UTF-16 mean the file is binary and fail the parse.

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported in ParseResult.Encoding.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF8BOM     = "utf-8-bom"
	EncodingUTF16LE     = "utf-16le"
	EncodingUTF16BE     = "utf-16be"
	EncodingWindows1252 = "windows-1252"
	EncodingXLSX        = "xlsx"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// decodeText returns data as UTF-8 text and the detected encoding name.
func decodeText(data []byte) (string, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		rest := data[len(bomUTF8):]
		if !utf8.Valid(rest) {
			return "", "", &ParseError{Reason: "encoding error: invalid utf-8 after BOM"}
		}
		return string(rest), EncodingUTF8BOM, nil
	case bytes.HasPrefix(data, bomUTF16LE):
		return decodeWith(data, EncodingUTF16LE, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM))
	case bytes.HasPrefix(data, bomUTF16BE):
		return decodeWith(data, EncodingUTF16BE, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM))
	}

	if bytes.IndexByte(data, 0) >= 0 {
		return "", "", &ParseError{Reason: "encoding error: binary content (NUL bytes)"}
	}

	if utf8.Valid(data) {
		return string(data), EncodingUTF8, nil
	}

	return decodeWith(data, EncodingWindows1252, charmap.Windows1252)
}

func decodeWith(data []byte, name string, enc encoding.Encoding) (string, string, error) {
	if (name == EncodingUTF16LE || name == EncodingUTF16BE) && len(data)%2 != 0 {
		return "", "", &ParseError{Reason: "encoding error: truncated " + name + " input"}
	}

	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", "", &ParseError{Reason: "encoding error: " + name, Err: err}
	}
	return string(out), name, nil
}

package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// delimiterCandidates are tried in order; earlier entries win ties.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// Parser turns raw spreadsheet bytes into a ParseResult.
// The zero value parses with English validation messages.
type Parser struct {
	Locale Locale
}

// NewParser returns a parser whose validator speaks locale.
func NewParser(locale Locale) *Parser {
	return &Parser{Locale: locale}
}

var defaultParser = &Parser{Locale: LocaleEN}

// ParseTabular parses data against the named dataset with default settings.
func ParseTabular(data []byte, dataset string) (*ParseResult, error) {
	return defaultParser.Parse(data, dataset)
}

// Parse decodes and tokenizes data, maps its headers onto the dataset schema,
// projects every row and validates a sample. Everything stays string-typed.
//
// Malformed rows are reported in Errors and do not fail the parse. A file that
// cannot be decoded or tokenized at all returns *ParseError.
func (p *Parser) Parse(data []byte, dataset string) (*ParseResult, error) {
	schema, err := Lookup(dataset)
	if err != nil {
		return nil, err
	}

	tbl, err := tokenize(data)
	if err != nil {
		return nil, err
	}

	result := &ParseResult{
		OriginalHeaders: tbl.headers,
		Errors:          tbl.rowErrors,
		Delimiter:       tbl.delimiter,
		Encoding:        tbl.encoding,
	}

	mapping := MapColumns(tbl.headers, schema)
	result.Mappings = mapping.Mappings
	result.Unmapped = mapping.Unmapped
	result.Missing = mapping.Missing

	result.Headers = make([]string, 0, len(tbl.headers))
	for _, m := range mapping.Mappings {
		result.Headers = append(result.Headers, m.Target)
	}
	result.Headers = append(result.Headers, mapping.Unmapped...)

	result.OriginalData = make([]Record, len(tbl.rows))
	for i, row := range tbl.rows {
		rec := make(Record, len(tbl.headers))
		for j, h := range tbl.headers {
			rec[h] = row[j]
		}
		result.OriginalData[i] = rec
	}
	result.Data = ProjectRows(result.OriginalData, mapping.Mappings)
	result.RowCount = len(result.Data)
	result.Lines = tbl.lines

	if schema.AcceptsMatrix && IsTransposedMatrix(tbl.headers) {
		result.Matrix = MeltTransposedMatrix(tbl.rows, tbl.headers)
	}

	if result.Matrix == nil || result.RowCount == 0 {
		result.Errors = append(result.Errors, ValidateSampleLines(result.Data, tbl.lines, schema, p.Locale)...)
	}

	if result.Errors == nil {
		result.Errors = []string{}
	}
	return result, nil
}

// table is the tokenized form of an upload before schema mapping.
type table struct {
	headers   []string
	rows      [][]string // trimmed, padded or truncated to len(headers)
	lines     []int      // source line of each row
	rowErrors []string
	delimiter string
	encoding  string
}

func tokenize(data []byte) (*table, error) {
	if len(data) == 0 {
		return &table{headers: []string{}, delimiter: ",", encoding: EncodingUTF8}, nil
	}

	if isWorkbook(data) {
		rows, err := readWorkbook(data)
		if err != nil {
			return nil, err
		}
		lines := make([]int, len(rows))
		for i := range rows {
			lines[i] = i + 1
		}
		tbl := buildTable(rows, lines)
		tbl.encoding = EncodingXLSX
		return tbl, nil
	}

	text, enc, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	delim := guessDelimiter(text)
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var (
		rows      [][]string
		lines     []int
		rowErrors []string
	)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %v", pe.StartLine, pe.Err))
				continue
			}
			return nil, &ParseError{Reason: "tokenize", Err: err}
		}
		line, _ := r.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, line)
	}

	tbl := buildTable(rows, lines)
	tbl.rowErrors = append(rowErrors, tbl.rowErrors...)
	tbl.delimiter = string(delim)
	tbl.encoding = enc
	return tbl, nil
}

// buildTable takes the first non-empty row as the header and normalizes the
// remaining rows to the header width.
func buildTable(records [][]string, lines []int) *table {
	tbl := &table{headers: []string{}}

	start := -1
	for i, rec := range records {
		if !isEmptyRow(rec) {
			start = i
			break
		}
	}
	if start < 0 {
		return tbl
	}

	tbl.headers = uniqueHeaders(records[start])
	width := len(tbl.headers)

	for i := start + 1; i < len(records); i++ {
		rec := records[i]
		if isEmptyRow(rec) {
			continue
		}
		if len(rec) != width {
			tbl.rowErrors = append(tbl.rowErrors,
				fmt.Sprintf("Row %d: expected %d fields, found %d", lines[i], width, len(rec)))
		}
		row := make([]string, width)
		for j := 0; j < width && j < len(rec); j++ {
			row[j] = CleanCell(rec[j])
		}
		tbl.rows = append(tbl.rows, row)
		tbl.lines = append(tbl.lines, lines[i])
	}
	return tbl
}

// uniqueHeaders trims header cells, names blank ones by position and
// suffixes duplicates so every header is a distinct record key.
func uniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		if n := seen[h]; n > 0 {
			seen[h] = n + 1
			h = h + "_" + strconv.Itoa(n+1)
		} else {
			seen[h] = 1
		}
		out[i] = h
	}
	return out
}

// guessDelimiter scores each candidate on the first non-empty line, counting
// only occurrences outside double quotes. Defaults to comma.
func guessDelimiter(text string) rune {
	line := firstNonEmptyLine(text)

	counts := make(map[rune]int, len(delimiterCandidates))
	inQuotes := false
	for _, r := range line {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if inQuotes {
			continue
		}
		for _, c := range delimiterCandidates {
			if r == c {
				counts[c]++
			}
		}
	}

	best, bestCount := delimiterCandidates[0], 0
	for _, c := range delimiterCandidates {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

func firstNonEmptyLine(text string) string {
	for len(text) > 0 {
		line := text
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			line, text = text[:i], text[i+1:]
		} else {
			text = ""
		}
		if strings.TrimSpace(line) != "" {
			return line
		}
	}
	return ""
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

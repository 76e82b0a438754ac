package core

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeHeader reduces a header or alias to a comparison token:
// lower-cased, accents removed, every run of characters outside [a-z0-9]
// collapsed to one separator, trimmed, and joined with underscores.
//
//	"Active? (Yes/No)" -> "active_yes_no"
//	"Período"          -> "periodo"
func NormalizeHeader(s string) string {
	s = stripDiacritics(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	return b.String()
}

// stripDiacritics decomposes s and drops combining marks.
func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// normalizeAll returns the normalized form of every input, in order.
func normalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = NormalizeHeader(s)
	}
	return out
}

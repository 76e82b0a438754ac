package core

// validation.go provides content checks for parsed rows before persistence.
//
// Validation happens at two levels:
//  1. Structural: required canonical fields must map to a header (MapColumns
//     reports these as Missing; StructuralError blocks persistence)
//  2. Sampling: a bounded sample of projected rows is checked for empty
//     required values. These issues are advisory and never block.

import (
	"fmt"
	"strings"
)

// SampleSize is the number of leading rows ValidateSample inspects.
const SampleSize = 10

// maxIssuesPerField caps per-row issues before a rollup line is emitted.
const maxIssuesPerField = 3

// Locale selects the language of user-facing validation messages.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleES Locale = "es"
)

type validationMessages struct {
	emptyFile  string
	emptyField string // row number, field
	rollup     string // count, field
}

var messagesByLocale = map[Locale]validationMessages{
	LocaleEN: {
		emptyFile:  "file is empty",
		emptyField: "Row %d: required field '%s' is empty",
		rollup:     "...and %d more rows with '%s' empty",
	},
	LocaleES: {
		emptyFile:  "El archivo está vacío",
		emptyField: "Fila %d: el campo obligatorio '%s' está vacío",
		rollup:     "...y %d filas más con '%s' vacío",
	},
}

func messagesFor(l Locale) validationMessages {
	if m, ok := messagesByLocale[l]; ok {
		return m
	}
	return messagesByLocale[LocaleEN]
}

// ParseLocale maps a config value to a supported Locale, defaulting to English.
func ParseLocale(s string) Locale {
	switch Locale(strings.ToLower(strings.TrimSpace(s))) {
	case LocaleES:
		return LocaleES
	default:
		return LocaleEN
	}
}

// ValidateSample checks the first SampleSize rows for empty required fields.
// An empty row set yields a single "file is empty" issue and no field scan.
// Rows are numbered as if they directly followed a single header line.
func ValidateSample(rows []Record, schema DatasetSchema, locale Locale) []string {
	return ValidateSampleLines(rows, nil, schema, locale)
}

// ValidateSampleLines is ValidateSample with the source line of each row.
// Rows without an entry in lines fall back to their position after the header.
func ValidateSampleLines(rows []Record, lines []int, schema DatasetSchema, locale Locale) []string {
	msgs := messagesFor(locale)

	if len(rows) == 0 {
		return []string{msgs.emptyFile}
	}

	n := len(rows)
	if n > SampleSize {
		n = SampleSize
	}
	sample := rows[:n]

	var issues []string
	for _, field := range schema.Required {
		empty := 0
		for i, row := range sample {
			if strings.TrimSpace(row[field]) != "" {
				continue
			}
			empty++
			if empty <= maxIssuesPerField {
				issues = append(issues, fmt.Sprintf(msgs.emptyField, sourceLine(lines, i), field))
			}
		}
		if empty > maxIssuesPerField {
			issues = append(issues, fmt.Sprintf(msgs.rollup, empty-maxIssuesPerField, field))
		}
	}
	return issues
}

// sourceLine is the line of row i, or i+2 (1-indexed, after the header)
// when lines does not cover it.
func sourceLine(lines []int, i int) int {
	if i < len(lines) && lines[i] > 0 {
		return lines[i]
	}
	return i + 2
}

// ValidationError represents a single validation error for a field.
type ValidationError struct {
	Line    int    // Source line, 0 when unknown
	Field   string // Canonical field name
	Value   string // The invalid value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "row %d: ", e.Line)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, "%s for '%s'", e.Message, e.Field)
	} else {
		b.WriteString(e.Message)
	}
	if e.Value != "" {
		fmt.Fprintf(&b, ": %q", e.Value)
	}
	return b.String()
}

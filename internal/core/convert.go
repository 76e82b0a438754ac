package core

// convert.go provides type conversion functions from spreadsheet cells to
// PostgreSQL types, used by dataset transforms just before upsert.
//
// These functions handle the messy reality of third-party exports:
//   - Day-first and ISO dates (DD/MM/YYYY, YYYY-MM-DD, ...)
//   - Currency symbols, thousand separators and decimal commas
//   - Boolean spellings in English and Spanish (yes/no, si/no, 1/0)
//   - Excel formula prefixes (="00123") used to keep leading zeros
//
// All ToPg* functions return pgtype values with Valid=false for empty/invalid input,
// allowing the database to handle NULLs appropriately.

import (
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling.
// Day-first layouts precede month-name layouts; ISO is unambiguous.
var (
	twoDigitYearLayouts = []string{
		"2/1/06", "02/01/06", "2-1-06", "2.1.06", "02.01.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006_01_02", "2006/01/02", "2006.01.02",
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006", "2.1.2006", "02.01.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
)

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ParseDate parses s with the supported layouts.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// ToPgDate converts a string to pgtype.Date.
func ToPgDate(s string) pgtype.Date {
	t, ok := ParseDate(s)
	if !ok {
		return pgtype.Date{Valid: false}
	}
	return pgtype.Date{Time: t, Valid: true}
}

// cleanNumber strips currency symbols and grouping, returning a string in
// plain decimal notation or "" when s is not numeric.
func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, sym := range []string{"$", "\u20ac", "\u00a3", "\u00a0", " "} {
		s = strings.ReplaceAll(s, sym, "")
	}

	s = normalizeSeparators(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return ""
	}
	return s
}

// normalizeSeparators resolves "1.234,56", "1,234.56" and "12,5" to dot-decimal.
func normalizeSeparators(s string) string {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastComma < 0:
		return s
	case lastDot > lastComma:
		// 1,234.56
		return strings.ReplaceAll(s, ",", "")
	case lastDot >= 0:
		// 1.234,56
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ",") == 1 && len(s)-lastComma-1 != 3:
		// 12,5 (decimal comma)
		return strings.Replace(s, ",", ".", 1)
	default:
		// 1,234 or 1,234,567
		return strings.ReplaceAll(s, ",", "")
	}
}

// ToDecimal parses a spreadsheet number into a decimal.
func ToDecimal(s string) (decimal.Decimal, bool) {
	clean := cleanNumber(s)
	if clean == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ToPgNumeric converts a string to pgtype.Numeric.
// Handles currency symbols, thousands separators, decimal commas and
// accounting format (parentheses for negative).
func ToPgNumeric(s string) pgtype.Numeric {
	clean := cleanNumber(s)
	if clean == "" {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(clean); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return n
}

// ToPgBool converts a string to pgtype.Bool.
// Accepts true/false, yes/no, si/no, t/f, y/n, s/n, 1/0, activo/inactivo.
func ToPgBool(s string) pgtype.Bool {
	s = stripDiacritics(strings.TrimSpace(strings.ToLower(s)))
	if s == "" {
		return pgtype.Bool{Valid: false}
	}

	switch s {
	case "true", "t", "yes", "y", "1", "si", "s", "active", "activo", "x":
		return pgtype.Bool{Bool: true, Valid: true}
	case "false", "f", "no", "n", "0", "inactive", "inactivo":
		return pgtype.Bool{Bool: false, Valid: true}
	default:
		return pgtype.Bool{Valid: false}
	}
}

// ToPgInt4 converts a string holding a whole number to pgtype.Int4.
func ToPgInt4(s string) pgtype.Int4 {
	d, ok := ToDecimal(s)
	if !ok || !d.Equal(d.Truncate(0)) {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(d.IntPart()), Valid: true}
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace
// - Unwraps Excel formula text (="00123" -> 00123)
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}

	return strings.TrimSpace(s)
}

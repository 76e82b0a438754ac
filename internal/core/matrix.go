package core

// matrix.go handles entity-by-date exports (attendance grids and similar),
// where each row is an entity and each column after the first is a day:
//
//	empleado,2025-08-01,2025-08-02,2025-08-03
//	Ana,8:30,0,7.25
//
// Such files are melted into per-entity totals instead of going through
// the column mapper.

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotMatrix is returned by MeltFile when the headers are not date-shaped.
var ErrNotMatrix = errors.New("not a transposed matrix")

// matrixDatePatterns are the header shapes accepted as date columns.
var matrixDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), // YYYY-MM-DD
	regexp.MustCompile(`^\d{4}_\d{2}_\d{2}$`), // YYYY_MM_DD
	regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`), // DD/MM/YYYY
	regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`), // DD-MM-YYYY
}

// hoursMinutes matches H:MM cell values.
var hoursMinutes = regexp.MustCompile(`^(\d+):([0-5]\d)$`)

var sixty = decimal.NewFromInt(60)

func looksLikeDate(header string) bool {
	header = strings.TrimSpace(header)
	for _, p := range matrixDatePatterns {
		if p.MatchString(header) {
			return true
		}
	}
	return false
}

// IsTransposedMatrix reports whether more than half of the headers after the
// first look like dates.
func IsTransposedMatrix(headers []string) bool {
	if len(headers) < 2 {
		return false
	}
	candidates := headers[1:]
	matched := 0
	for _, h := range candidates {
		if looksLikeDate(h) {
			matched++
		}
	}
	return matched*2 > len(candidates)
}

// MeltTransposedMatrix folds an entity-by-date matrix into per-entity totals.
//
// Column 0 is the entity id; date-shaped headers become the sorted column
// keys and all other columns are ignored. Cells parse as H:MM or a decimal;
// empty, non-numeric and zero cells are skipped. Entities whose rounded total
// is zero are dropped.
func MeltTransposedMatrix(rows [][]string, headers []string) *MatrixResult {
	result := &MatrixResult{
		PerEntity:  []EntityTotals{},
		ColumnKeys: []string{},
	}

	keyIndex := make(map[string]int)
	for i := 1; i < len(headers); i++ {
		key := strings.TrimSpace(headers[i])
		if !looksLikeDate(key) {
			continue
		}
		if _, dup := keyIndex[key]; dup {
			continue
		}
		keyIndex[key] = i
		result.ColumnKeys = append(result.ColumnKeys, key)
	}
	sort.Strings(result.ColumnKeys)

	if len(result.ColumnKeys) > 0 {
		result.PeriodStart = result.ColumnKeys[0]
		result.PeriodEnd = result.ColumnKeys[len(result.ColumnKeys)-1]
	}

	aggregate := decimal.Zero
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		entity := EntityTotals{
			EntityID: strings.TrimSpace(row[0]),
			Values:   make(map[string]float64),
		}

		total := decimal.Zero
		for _, key := range result.ColumnKeys {
			col := keyIndex[key]
			if col >= len(row) {
				continue
			}
			v, ok := parseMatrixCell(row[col])
			if !ok {
				continue
			}
			entity.Values[key] = v.InexactFloat64()
			entity.CountNonZero++
			total = total.Add(v)
		}

		total = total.Round(2)
		if total.IsZero() {
			continue
		}
		entity.Total = total.InexactFloat64()

		result.PerEntity = append(result.PerEntity, entity)
		aggregate = aggregate.Add(total)
		result.AggregateCount += entity.CountNonZero
	}
	result.AggregateTotal = aggregate.InexactFloat64()

	return result
}

// parseMatrixCell reads H:MM (hours plus minutes/60) or a plain decimal.
// Empty, unparseable and zero values report ok=false.
func parseMatrixCell(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	if m := hoursMinutes.FindStringSubmatch(s); m != nil {
		h, _ := decimal.NewFromString(m[1])
		mins, _ := decimal.NewFromString(m[2])
		v := h.Add(mins.Div(sixty))
		if v.IsZero() {
			return decimal.Zero, false
		}
		return v, true
	}

	v, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil || v.IsZero() {
		return decimal.Zero, false
	}
	return v, true
}

// MeltFile tokenizes a whole upload and melts it. It needs no dataset,
// since matrix columns are positional.
func MeltFile(data []byte) (*MatrixResult, error) {
	tbl, err := tokenize(data)
	if err != nil {
		return nil, err
	}
	if !IsTransposedMatrix(tbl.headers) {
		return nil, ErrNotMatrix
	}
	return MeltTransposedMatrix(tbl.rows, tbl.headers), nil
}

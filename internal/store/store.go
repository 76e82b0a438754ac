// Package store holds the SQL shared by the relational drivers: identifier
// quoting and the conflict-key upsert statement used for domain rows.
package store

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/JonMunkholm/intake/internal/core"
)

// Placeholder is a driver's bind parameter style.
type Placeholder int

const (
	Dollar   Placeholder = iota // $1, $2, ... (postgres)
	Question                    // ?, ?, ... (sqlite)
)

func (p Placeholder) bind(n int) string {
	if p == Question {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// QuoteIdentifier wraps name in double quotes, doubling any embedded quote.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Columns returns the sorted union of the keys of rows.
func Columns(rows []core.Row) []string {
	seen := make(map[string]bool)
	for _, r := range rows {
		for k := range r {
			seen[k] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for k := range seen {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Args returns row's values in column order; absent columns are NULL.
func Args(row core.Row, columns []string) []any {
	args := make([]any, len(columns))
	for i, c := range columns {
		args[i] = row[c]
	}
	return args
}

// UpsertSQL builds
//
//	INSERT INTO "t" ("a", "b", "c") VALUES ($1, $2, $3)
//	ON CONFLICT ("a") DO UPDATE SET "b" = EXCLUDED."b", "c" = EXCLUDED."c"
//
// Every conflict column must be among columns. When all columns are part of
// the key the statement ends in DO NOTHING.
func UpsertSQL(ph Placeholder, table string, columns, conflict []string) (string, error) {
	if table == "" {
		return "", errors.New("upsert: table name required")
	}
	if len(columns) == 0 {
		return "", errors.New("upsert: no columns")
	}
	if len(conflict) == 0 {
		return "", fmt.Errorf("upsert %s: conflict key required", table)
	}

	inKey := make(map[string]bool, len(conflict))
	for _, k := range conflict {
		inKey[k] = true
	}
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	for _, k := range conflict {
		if !present[k] {
			return "", fmt.Errorf("upsert %s: conflict column %q missing from rows", table, k)
		}
	}

	quoted := make([]string, len(columns))
	binds := make([]string, len(columns))
	var updates []string
	for i, c := range columns {
		quoted[i] = QuoteIdentifier(c)
		binds[i] = ph.bind(i + 1)
		if !inKey[c] {
			updates = append(updates, quoted[i]+" = EXCLUDED."+quoted[i])
		}
	}
	keys := make([]string, len(conflict))
	for i, k := range conflict {
		keys[i] = QuoteIdentifier(k)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) ",
		QuoteIdentifier(table),
		strings.Join(quoted, ", "),
		strings.Join(binds, ", "),
		strings.Join(keys, ", "),
	)
	if len(updates) == 0 {
		b.WriteString("DO NOTHING")
	} else {
		b.WriteString("DO UPDATE SET ")
		b.WriteString(strings.Join(updates, ", "))
	}
	return b.String(), nil
}

// KeyOf renders the conflict-key values of row as one comparable string.
// Driver valuers contribute their SQL value, so pgtype.Text{"a"} and "a" agree.
func KeyOf(row core.Row, conflict []string) string {
	parts := make([]string, len(conflict))
	for i, k := range conflict {
		v := row[k]
		if dv, ok := v.(driver.Valuer); ok {
			if val, err := dv.Value(); err == nil {
				v = val
			}
		}
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "\x1f")
}

// AuditLimit clamps a list limit for the drivers.
func AuditLimit(limit int) int {
	switch {
	case limit <= 0:
		return core.DefaultAuditLimit
	case limit > core.MaxAuditLimit:
		return core.MaxAuditLimit
	}
	return limit
}

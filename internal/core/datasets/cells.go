package datasets

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/intake/internal/core"
)

// cell returns the cleaned value of field.
func cell(rec core.Record, field string) string {
	return core.CleanCell(rec[field])
}

func requireText(rec core.Record, field string, line int) (pgtype.Text, error) {
	v := core.ToPgText(cell(rec, field))
	if !v.Valid {
		return v, core.ValidationError{Line: line, Field: field, Message: "required field is empty"}
	}
	return v, nil
}

// requireDate parses a mandatory date cell.
func requireDate(rec core.Record, field string, line int) (pgtype.Date, error) {
	raw := cell(rec, field)
	if raw == "" {
		return pgtype.Date{}, core.ValidationError{Line: line, Field: field, Message: "required field is empty"}
	}
	d := core.ToPgDate(raw)
	if !d.Valid {
		return d, core.ValidationError{Line: line, Field: field, Value: raw, Message: "invalid date"}
	}
	return d, nil
}

// optionalDate is NULL for an empty cell and an error for an unparseable one.
func optionalDate(rec core.Record, field string, line int) (pgtype.Date, error) {
	raw := cell(rec, field)
	if raw == "" {
		return pgtype.Date{}, nil
	}
	d := core.ToPgDate(raw)
	if !d.Valid {
		return d, core.ValidationError{Line: line, Field: field, Value: raw, Message: "invalid date"}
	}
	return d, nil
}

func requireNumber(rec core.Record, field string, line int) (pgtype.Numeric, error) {
	raw := cell(rec, field)
	if raw == "" {
		return pgtype.Numeric{}, core.ValidationError{Line: line, Field: field, Message: "required field is empty"}
	}
	n := core.ToPgNumeric(raw)
	if !n.Valid {
		return n, core.ValidationError{Line: line, Field: field, Value: raw, Message: "invalid number"}
	}
	return n, nil
}

func optionalNumber(rec core.Record, field string, line int) (pgtype.Numeric, error) {
	raw := cell(rec, field)
	if raw == "" {
		return pgtype.Numeric{}, nil
	}
	n := core.ToPgNumeric(raw)
	if !n.Valid {
		return n, core.ValidationError{Line: line, Field: field, Value: raw, Message: "invalid number"}
	}
	return n, nil
}

// branchOf prefers the branch named in the record over the request scope.
func branchOf(rec core.Record, scope core.Scope) string {
	if b := cell(rec, "branch"); b != "" {
		return b
	}
	return strings.TrimSpace(scope.BranchID)
}

package datasets

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/intake/internal/core"
)

func init() {
	registerRoster()
}

func registerRoster() {
	core.Register(core.DatasetSchema{
		Name:     "roster",
		Label:    "Employee roster",
		Required: []string{"national_id", "first_name", "last_name"},
		Optional: []string{"role", "active", "email", "phone", "hire_date", "branch"},
		Aliases: map[string][]string{
			"national_id": {"national_id", "personal identification number", "national id", "dni", "cedula", "id number", "documento", "identification"},
			"first_name":  {"first_name", "name", "first name", "nombre", "nombres"},
			"last_name":   {"last_name", "lastname", "last name", "apellido", "apellidos", "surname"},
			"role":        {"employee rol", "employee role", "rol", "role", "cargo", "position", "puesto"},
			"active":      {"active? (yes/no)", "active", "activo", "status", "estado"},
			"email":       {"email", "e-mail", "correo", "mail"},
			"phone":       {"phone", "telefono", "celular", "mobile"},
			"hire_date":   {"hire date", "fecha de ingreso", "ingreso", "start date"},
			"branch":      {"branch", "sucursal", "store", "local"},
		},
		Table:       "roster",
		ConflictKey: []string{"tenant_id", "national_id"},
		Transform:   rosterRow,
	})
}

func rosterRow(rec core.Record, scope core.Scope, line int) (core.Row, error) {
	id, err := requireText(rec, "national_id", line)
	if err != nil {
		return nil, err
	}
	// "12.345.678" and "12345678" are the same document number.
	id.String = strings.NewReplacer(".", "", " ", "", "-", "").Replace(id.String)

	first, err := requireText(rec, "first_name", line)
	if err != nil {
		return nil, err
	}
	last, err := requireText(rec, "last_name", line)
	if err != nil {
		return nil, err
	}
	hired, err := optionalDate(rec, "hire_date", line)
	if err != nil {
		return nil, err
	}

	active := core.ToPgBool(cell(rec, "active"))
	if !active.Valid {
		active = pgtype.Bool{Bool: true, Valid: true}
	}

	return core.Row{
		"tenant_id":   scope.TenantID,
		"national_id": id,
		"first_name":  first,
		"last_name":   last,
		"role":        core.ToPgText(cell(rec, "role")),
		"active":      active,
		"email":       core.ToPgText(strings.ToLower(cell(rec, "email"))),
		"phone":       core.ToPgText(cell(rec, "phone")),
		"hire_date":   hired,
		"branch_id":   core.ToPgText(branchOf(rec, scope)),
	}, nil
}

package datasets

import "github.com/JonMunkholm/intake/internal/core"

func init() {
	registerAttendance()
}

// Attendance is archived only. Most providers export it as an
// employee-by-date matrix, which the parser melts into manifest totals.
func registerAttendance() {
	core.Register(core.DatasetSchema{
		Name:     "attendance",
		Label:    "Attendance",
		Required: []string{"employee", "date", "hours"},
		Optional: []string{"check_in", "check_out", "branch"},
		Aliases: map[string][]string{
			"employee":  {"employee", "empleado", "colaborador", "legajo", "employee id"},
			"date":      {"date", "fecha", "day", "dia"},
			"hours":     {"hours", "horas", "worked hours", "horas trabajadas"},
			"check_in":  {"check in", "entrada", "ingreso", "clock in"},
			"check_out": {"check out", "salida", "egreso", "clock out"},
			"branch":    {"branch", "sucursal", "store", "local"},
		},
		TotalField:    "hours",
		DateField:     "date",
		AcceptsMatrix: true,
	})
}

package datasets

import "github.com/JonMunkholm/intake/internal/core"

func init() {
	registerPayrollLines()
}

func registerPayrollLines() {
	core.Register(core.DatasetSchema{
		Name:     "payrollLines",
		Label:    "Payroll lines",
		Required: []string{"employee_id", "concept", "amount"},
		Optional: []string{"period", "quantity", "employee_name"},
		Aliases: map[string][]string{
			"employee_id":   {"employee id", "legajo", "employee", "empleado", "dni"},
			"concept":       {"concept", "concepto", "description", "descripcion", "item"},
			"amount":        {"amount", "importe", "monto", "total"},
			"period":        {"period", "periodo", "month", "mes"},
			"quantity":      {"quantity", "cantidad", "units", "unidades"},
			"employee_name": {"employee name", "nombre", "apellido y nombre"},
		},
		TotalField: "amount",
	})
}

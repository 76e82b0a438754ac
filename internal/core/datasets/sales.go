package datasets

import (
	"github.com/JonMunkholm/intake/internal/core"
)

func init() {
	registerSales()
}

func registerSales() {
	core.Register(core.DatasetSchema{
		Name:     "sales",
		Label:    "Daily sales",
		Required: []string{"date", "total"},
		Optional: []string{"branch", "net", "tax", "tickets", "payment_method"},
		Aliases: map[string][]string{
			"date":           {"date", "fecha", "sale date", "business date", "dia"},
			"total":          {"total", "total sales", "venta total", "ventas", "gross sales", "importe total"},
			"branch":         {"branch", "sucursal", "store", "local", "branch id"},
			"net":            {"net", "neto", "net sales", "subtotal"},
			"tax":            {"tax", "iva", "impuesto", "vat"},
			"tickets":        {"tickets", "ticket count", "transactions", "operaciones", "comprobantes"},
			"payment_method": {"payment method", "medio de pago", "forma de pago"},
		},
		Table:       "sales_daily",
		ConflictKey: []string{"tenant_id", "branch_id", "sale_date"},
		Transform:   salesRow,
		TotalField:  "total",
		DateField:   "date",
	})
}

func salesRow(rec core.Record, scope core.Scope, line int) (core.Row, error) {
	branch := branchOf(rec, scope)
	if branch == "" {
		return nil, core.ValidationError{Line: line, Field: "branch", Message: "required field is empty"}
	}
	date, err := requireDate(rec, "date", line)
	if err != nil {
		return nil, err
	}
	total, err := requireNumber(rec, "total", line)
	if err != nil {
		return nil, err
	}
	net, err := optionalNumber(rec, "net", line)
	if err != nil {
		return nil, err
	}
	tax, err := optionalNumber(rec, "tax", line)
	if err != nil {
		return nil, err
	}

	return core.Row{
		"tenant_id":      scope.TenantID,
		"branch_id":      branch,
		"sale_date":      date,
		"total":          total,
		"net":            net,
		"tax":            tax,
		"tickets":        core.ToPgInt4(cell(rec, "tickets")),
		"payment_method": core.ToPgText(cell(rec, "payment_method")),
	}, nil
}

package datasets

import (
	"strings"

	"github.com/JonMunkholm/intake/internal/core"
)

func init() {
	registerPurchases()
}

func registerPurchases() {
	core.Register(core.DatasetSchema{
		Name:     "purchases",
		Label:    "Supplier purchases",
		Required: []string{"invoice_number", "supplier", "date", "total"},
		Optional: []string{"net", "tax", "due_date", "branch", "currency"},
		Aliases: map[string][]string{
			"invoice_number": {"invoice number", "invoice no", "invoice", "factura", "nro factura", "numero de factura", "comprobante"},
			"supplier":       {"supplier", "proveedor", "vendor", "razon social"},
			"date":           {"date", "fecha", "invoice date", "fecha emision"},
			"total":          {"total", "importe total", "amount", "monto"},
			"net":            {"net", "neto", "subtotal"},
			"tax":            {"tax", "iva", "impuesto", "vat"},
			"due_date":       {"due date", "vencimiento", "fecha vencimiento"},
			"branch":         {"branch", "sucursal", "store", "local"},
			"currency":       {"currency", "moneda"},
		},
		Table:       "purchases",
		ConflictKey: []string{"tenant_id", "branch_id", "invoice_number"},
		Transform:   purchaseRow,
		TotalField:  "total",
		DateField:   "date",
	})
}

// purchaseRow keys branchless invoices under the empty branch so they still
// conflict with themselves on re-upload.
func purchaseRow(rec core.Record, scope core.Scope, line int) (core.Row, error) {
	invoice, err := requireText(rec, "invoice_number", line)
	if err != nil {
		return nil, err
	}
	supplier, err := requireText(rec, "supplier", line)
	if err != nil {
		return nil, err
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
	due, err := optionalDate(rec, "due_date", line)
	if err != nil {
		return nil, err
	}

	return core.Row{
		"tenant_id":      scope.TenantID,
		"branch_id":      branchOf(rec, scope),
		"invoice_number": invoice,
		"supplier":       supplier,
		"invoice_date":   date,
		"total":          total,
		"net":            net,
		"tax":            tax,
		"due_date":       due,
		"currency":       core.ToPgText(strings.ToUpper(cell(rec, "currency"))),
	}, nil
}

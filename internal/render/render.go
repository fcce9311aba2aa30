// Package render projects an invoice into a fixed HTML layout suitable for
// A4 PDF conversion. Rendering is pure: the same ledger always produces the
// same markup and no I/O happens here.
package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/siddxharth1/intern-assignment/internal/domain"
)

//go:embed invoice.html.tmpl
var invoiceTemplate string

var tmpl = template.Must(
	template.New("invoice").
		Funcs(template.FuncMap{"money": money}).
		Parse(invoiceTemplate),
)

// money renders a monetary value with two-decimal fixed precision.
func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// invoiceView is the data passed to the invoice template.
type invoiceView struct {
	InvoiceID  string
	OwnerName  string
	OwnerEmail string
	Items      []itemView
	Total      float64
	Tax        float64
}

type itemView struct {
	Name      string
	Quantity  int
	UnitPrice float64
	LineTotal float64
}

// Invoice renders the given ledger and owner into a complete HTML document.
func Invoice(inv *domain.Invoice, owner *domain.User) ([]byte, error) {
	view := invoiceView{
		InvoiceID:  inv.ID,
		OwnerName:  owner.Name,
		OwnerEmail: owner.Email,
		Items:      make([]itemView, 0, len(inv.Items)),
		Total:      inv.Total,
		Tax:        inv.Tax,
	}
	for _, item := range inv.Items {
		view.Items = append(view.Items, itemView{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.Total(),
		})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("execute invoice template: %w", err)
	}

	return buf.Bytes(), nil
}

package domain

import "time"

// TaxRate is the fixed GST surcharge applied to every invoice total.
const TaxRate = 0.18

// LineItem is one product entry on an invoice. Items are immutable once
// appended; the ledger only ever grows.
type LineItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"price"`
}

// Total returns the line total (quantity × unit price).
func (li LineItem) Total() float64 {
	return float64(li.Quantity) * li.UnitPrice
}

// Invoice is the single per-owner ledger of accumulated line items together
// with its derived totals.
type Invoice struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	Items     []LineItem `json:"items"`
	Total     float64    `json:"total"`
	Tax       float64    `json:"tax"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Recalculate derives Total and Tax from the full item sequence. Totals are
// always recomputed from scratch rather than maintained incrementally, so a
// stored invoice can never drift from the sum of its items.
func (inv *Invoice) Recalculate() {
	var total float64
	for _, item := range inv.Items {
		total += item.Total()
	}
	inv.Total = total
	inv.Tax = total * TaxRate
}

// Append adds a line item to the end of the item sequence and recomputes the
// derived totals.
func (inv *Invoice) Append(item LineItem) {
	inv.Items = append(inv.Items, item)
	inv.Recalculate()
}

package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a billable line recorded on a project work.
// InvoiceLineID is written once, by the invoicing procedure.
type Expense struct {
	ID            int64               `json:"id"`
	Name          string              `json:"name" validate:"required"`
	ProductID     int64               `json:"product_id" validate:"required"`
	Quantity      float64             `json:"quantity"`
	UnitID        *int64              `json:"unit_id,omitempty"`
	UnitPrice     decimal.NullDecimal `json:"unit_price"`
	WorkID        *int64              `json:"work_id,omitempty"`
	InvoiceLineID *int64              `json:"invoice_line_id,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// IsInvoiced reports whether the expense is already linked to an invoice line.
func (e *Expense) IsInvoiced() bool {
	return e.InvoiceLineID != nil
}

// Clone returns a copy that does not share pointer fields with e.
func (e *Expense) Clone() *Expense {
	c := *e
	c.UnitID = cloneID(e.UnitID)
	c.WorkID = cloneID(e.WorkID)
	c.InvoiceLineID = cloneID(e.InvoiceLineID)
	return &c
}

// Changes holds proposed field values keyed by field name.
// Companion keys such as "unit.rec_name" travel alongside the field they describe.
type Changes map[string]interface{}

func cloneID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

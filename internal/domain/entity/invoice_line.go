package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceLine is a line of a customer or supplier invoice.
// InvoiceID is nil for lines created standalone, outside any invoice.
type InvoiceLine struct {
	ID          int64               `json:"id"`
	InvoiceID   *int64              `json:"invoice_id,omitempty"`
	InvoiceType string              `json:"invoice_type"`
	Type        string              `json:"type"`
	PartyID     int64               `json:"party_id"`
	ProductID   int64               `json:"product_id"`
	Description string              `json:"description"`
	Quantity    float64             `json:"quantity"`
	UnitID      *int64              `json:"unit_id,omitempty"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	AccountID   int64               `json:"account_id"`
	TaxIDs      []int64             `json:"tax_ids"`
	CreatedAt   time.Time           `json:"created_at"`
}

// TaxRulePattern returns the base pattern used to resolve the line taxes.
func (l *InvoiceLine) TaxRulePattern() TaxRulePattern {
	return TaxRulePattern{}
}

// Amount returns quantity times unit price rounded to AmountDigits.
func (l *InvoiceLine) Amount() decimal.Decimal {
	if !l.UnitPrice.Valid {
		return decimal.Zero
	}
	return decimal.NewFromFloat(l.Quantity).Mul(l.UnitPrice.Decimal).Round(AmountDigits)
}

// Validate checks the fields every persisted line needs.
func (l *InvoiceLine) Validate() error {
	if l.Type != InvoiceLineTypeLine {
		return nil
	}
	if l.PartyID == 0 {
		return fmt.Errorf("invoice line: party is required")
	}
	if l.AccountID == 0 {
		return fmt.Errorf("invoice line: account is required")
	}
	if !l.UnitPrice.Valid {
		return fmt.Errorf("invoice line: unit price is required")
	}
	if l.InvoiceType == "" {
		return fmt.Errorf("invoice line: invoice type is required")
	}
	return nil
}

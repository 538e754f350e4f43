package port

import (
	"io"

	"github.com/shopspring/decimal"
)

// ExpenseRow is one line of an expense report.
type ExpenseRow struct {
	Work          string
	Description   string
	Product       string
	Quantity      float64
	Unit          string
	UnitPrice     decimal.NullDecimal
	Amount        decimal.Decimal
	InvoiceLineID *int64
}

// ExpenseSheetWriter renders expense rows as a spreadsheet.
type ExpenseSheetWriter interface {
	WriteExpenses(w io.Writer, title string, rows []ExpenseRow) error
}

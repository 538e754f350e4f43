package port

import (
	"context"

	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
)

type invoiceContextKey struct{}

// InvoiceContext tells the accounting side how invoice lines are being created.
type InvoiceContext struct {
	// Type is the invoice type new lines default to
	Type string

	// Standalone lines are created on their own, not appended to a draft invoice
	Standalone bool
}

// WithInvoiceContext returns a context carrying ic for the calls made under it.
func WithInvoiceContext(ctx context.Context, ic InvoiceContext) context.Context {
	return context.WithValue(ctx, invoiceContextKey{}, ic)
}

// InvoiceContextFrom returns the InvoiceContext carried by ctx, if any.
func InvoiceContextFrom(ctx context.Context) (InvoiceContext, bool) {
	ic, ok := ctx.Value(invoiceContextKey{}).(InvoiceContext)
	return ic, ok
}

// WorkInvoicer runs the invoicing of works that does not come from expenses
// (efforts, progress, timesheets).
type WorkInvoicer interface {
	Invoice(ctx context.Context, works []*entity.Work) error
}

package port

import (
	"context"
	"errors"

	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyInvoiced is returned when an expense is linked to an invoice line twice
	ErrAlreadyInvoiced = errors.New("expense already invoiced")
)

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id int64) (*entity.Expense, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*entity.Expense, error)

	// GetByWorkID returns the expenses of a work ordered by id
	GetByWorkID(ctx context.Context, workID int64) ([]*entity.Expense, error)

	// Update writes every field except the invoice line link
	Update(ctx context.Context, expense *entity.Expense) error

	// SetInvoiceLine links the expense to an invoice line.
	// It fails with ErrAlreadyInvoiced when a link already exists.
	SetInvoiceLine(ctx context.Context, id int64, invoiceLineID int64) error

	Delete(ctx context.Context, id int64) error
}

// WorkRepository defines persistence operations for Work
type WorkRepository interface {
	Create(ctx context.Context, work *entity.Work) error
	GetByID(ctx context.Context, id int64) (*entity.Work, error)

	// GetChildren returns the direct children ordered by sequence then id
	GetChildren(ctx context.Context, parentID int64) ([]*entity.Work, error)
}

// ProductRepository defines read access to products and units of measure
type ProductRepository interface {
	// GetByID returns the product with its taxes and category loaded
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	GetUom(ctx context.Context, id int64) (*entity.Uom, error)
}

// PartyRepository defines read access to parties
type PartyRepository interface {
	// GetByID returns the party with its customer tax rule lines loaded
	GetByID(ctx context.Context, id int64) (*entity.Party, error)
}

// InvoiceLineRepository defines persistence operations for InvoiceLine
type InvoiceLineRepository interface {
	// Create persists the line and its taxes, honoring the InvoiceContext of ctx
	Create(ctx context.Context, line *entity.InvoiceLine) error
	GetByID(ctx context.Context, id int64) (*entity.InvoiceLine, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

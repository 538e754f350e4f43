package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
	"github.com/NaN-tic/trytond-project-expenses/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// InvoiceLineRepository implements port.InvoiceLineRepository
type InvoiceLineRepository struct {
	db     *sql.DB
	tx     *sqlite.DB
	logger *zap.Logger
}

// NewInvoiceLineRepository creates a new invoice line repository
func NewInvoiceLineRepository(db *sql.DB, logger *zap.Logger) port.InvoiceLineRepository {
	return &InvoiceLineRepository{
		db:     db,
		tx:     sqlite.NewDB(db, logger),
		logger: logger,
	}
}

// Create inserts a line and its taxes.
// Lines outside a standalone InvoiceContext must belong to an invoice.
func (r *InvoiceLineRepository) Create(ctx context.Context, line *entity.InvoiceLine) error {
	ic, _ := port.InvoiceContextFrom(ctx)
	if line.InvoiceType == "" {
		line.InvoiceType = ic.Type
	}
	if line.InvoiceID == nil && !ic.Standalone {
		return fmt.Errorf("invoice line: invoice is required outside a standalone context")
	}
	if err := line.Validate(); err != nil {
		return err
	}
	if line.CreatedAt.IsZero() {
		line.CreatedAt = time.Now()
	}

	return r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		exec := sqlite.Executor(ctx, r.db)

		result, err := exec.ExecContext(ctx, `
			INSERT INTO invoice_lines (
				invoice_id, invoice_type, type, party_id, product_id, description,
				quantity, unit_id, unit_price, account_id, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			nullableID(line.InvoiceID),
			line.InvoiceType,
			line.Type,
			line.PartyID,
			line.ProductID,
			line.Description,
			line.Quantity,
			nullableID(line.UnitID),
			line.UnitPrice,
			line.AccountID,
			line.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create invoice line",
				zap.Int64("party_id", line.PartyID),
				zap.Int64("product_id", line.ProductID),
				zap.Error(err))
			return fmt.Errorf("failed to create invoice line: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		for seq, taxID := range line.TaxIDs {
			_, err := exec.ExecContext(ctx,
				`INSERT INTO invoice_line_taxes (line_id, tax_id, sequence) VALUES (?, ?, ?)`,
				id, taxID, seq)
			if err != nil {
				r.logger.Error("Failed to create invoice line tax",
					zap.Int64("line_id", id),
					zap.Int64("tax_id", taxID),
					zap.Error(err))
				return fmt.Errorf("failed to create invoice line tax: %w", err)
			}
		}

		line.ID = id
		return nil
	})
}

// GetByID retrieves an invoice line with its taxes
func (r *InvoiceLineRepository) GetByID(ctx context.Context, id int64) (*entity.InvoiceLine, error) {
	exec := sqlite.Executor(ctx, r.db)

	var line entity.InvoiceLine
	var invoiceID, productID, unitID sql.NullInt64

	err := exec.QueryRowContext(ctx, `
		SELECT id, invoice_id, invoice_type, type, party_id, product_id, description,
			quantity, unit_id, unit_price, account_id, created_at
		FROM invoice_lines
		WHERE id = ?
	`, id).Scan(
		&line.ID,
		&invoiceID,
		&line.InvoiceType,
		&line.Type,
		&line.PartyID,
		&productID,
		&line.Description,
		&line.Quantity,
		&unitID,
		&line.UnitPrice,
		&line.AccountID,
		&line.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("invoice line %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get invoice line by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice line: %w", err)
	}

	line.InvoiceID = idPtr(invoiceID)
	line.ProductID = productID.Int64
	line.UnitID = idPtr(unitID)

	rows, err := exec.QueryContext(ctx,
		`SELECT tax_id FROM invoice_line_taxes WHERE line_id = ? ORDER BY sequence, id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice line taxes: %w", err)
	}
	defer rows.Close()

	line.TaxIDs = []int64{}
	for rows.Next() {
		var taxID int64
		if err := rows.Scan(&taxID); err != nil {
			return nil, fmt.Errorf("failed to scan invoice line tax: %w", err)
		}
		line.TaxIDs = append(line.TaxIDs, taxID)
	}

	return &line, rows.Err()
}

// Verify interface compliance
var _ port.InvoiceLineRepository = (*InvoiceLineRepository)(nil)

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
	"github.com/NaN-tic/trytond-project-expenses/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const expenseColumns = `id, name, product_id, quantity, unit_id, unit_price,
	work_id, invoice_line_id, created_at, updated_at`

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new expense and sets its ID
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO project_work_expenses (
			name, product_id, quantity, unit_id, unit_price,
			work_id, invoice_line_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		expense.Name,
		expense.ProductID,
		expense.Quantity,
		nullableID(expense.UnitID),
		expense.UnitPrice,
		nullableID(expense.WorkID),
		nullableID(expense.InvoiceLineID),
		expense.CreatedAt,
		expense.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense",
			zap.Int64("product_id", expense.ProductID),
			zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	expense.ID = id
	return nil
}

// GetByID retrieves an expense by its ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM project_work_expenses WHERE id = ?`

	expense, err := scanExpense(sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("expense %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get expense by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return expense, nil
}

// GetByIDs retrieves expenses in the order of ids
func (r *ExpenseRepository) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Expense, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := `SELECT ` + expenseColumns + ` FROM project_work_expenses WHERE id IN (` + placeholders + `)`

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to get expenses by IDs", zap.Int64s("ids", ids), zap.Error(err))
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	found, err := scanExpenses(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*entity.Expense, len(found))
	for _, e := range found {
		byID[e.ID] = e
	}

	expenses := make([]*entity.Expense, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("expense %d: %w", id, port.ErrNotFound)
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

// GetByWorkID retrieves the expenses of a work
func (r *ExpenseRepository) GetByWorkID(ctx context.Context, workID int64) ([]*entity.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM project_work_expenses WHERE work_id = ? ORDER BY id`

	rows, err := sqlite.Executor(ctx, r.db).QueryContext(ctx, query, workID)
	if err != nil {
		r.logger.Error("Failed to get expenses by work ID",
			zap.Int64("work_id", workID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	defer rows.Close()

	return scanExpenses(rows)
}

// Update writes the editable fields of an expense
func (r *ExpenseRepository) Update(ctx context.Context, expense *entity.Expense) error {
	query := `
		UPDATE project_work_expenses
		SET name = ?, product_id = ?, quantity = ?, unit_id = ?, unit_price = ?,
			work_id = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx, query,
		expense.Name,
		expense.ProductID,
		expense.Quantity,
		nullableID(expense.UnitID),
		expense.UnitPrice,
		nullableID(expense.WorkID),
		expense.UpdatedAt,
		expense.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update expense",
			zap.Int64("id", expense.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update expense: %w", err)
	}

	return expectOneRow(result, "expense", expense.ID)
}

// SetInvoiceLine links an expense to its invoice line, once
func (r *ExpenseRepository) SetInvoiceLine(ctx context.Context, id int64, invoiceLineID int64) error {
	query := `
		UPDATE project_work_expenses
		SET invoice_line_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND invoice_line_id IS NULL
	`

	exec := sqlite.Executor(ctx, r.db)
	result, err := exec.ExecContext(ctx, query, invoiceLineID, id)
	if err != nil {
		r.logger.Error("Failed to set expense invoice line",
			zap.Int64("id", id),
			zap.Int64("invoice_line_id", invoiceLineID),
			zap.Error(err))
		return fmt.Errorf("failed to set invoice line: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	// Tell a missing expense apart from an invoiced one
	var exists int
	err = exec.QueryRowContext(ctx, `SELECT 1 FROM project_work_expenses WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("expense %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check expense: %w", err)
	}
	return fmt.Errorf("expense %d: %w", id, port.ErrAlreadyInvoiced)
}

// Delete removes an expense
func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	result, err := sqlite.Executor(ctx, r.db).ExecContext(ctx,
		`DELETE FROM project_work_expenses WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete expense",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	return expectOneRow(result, "expense", id)
}

// scanExpense scans a single expense row
func scanExpense(row rowScanner) (*entity.Expense, error) {
	var expense entity.Expense
	var unitID, workID, invoiceLineID sql.NullInt64

	err := row.Scan(
		&expense.ID,
		&expense.Name,
		&expense.ProductID,
		&expense.Quantity,
		&unitID,
		&expense.UnitPrice,
		&workID,
		&invoiceLineID,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	expense.UnitID = idPtr(unitID)
	expense.WorkID = idPtr(workID)
	expense.InvoiceLineID = idPtr(invoiceLineID)

	return &expense, nil
}

// scanExpenses scans multiple expense rows
func scanExpenses(rows *sql.Rows) ([]*entity.Expense, error) {
	var expenses []*entity.Expense

	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
	"github.com/NaN-tic/trytond-project-expenses/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// ProductRepository implements port.ProductRepository
type ProductRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) port.ProductRepository {
	return &ProductRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a product with its translations, taxes and category
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	query := `
		SELECT id, code, name, default_uom_id, list_price, account_revenue_id,
			accounts_category, taxes_category, category_id
		FROM products
		WHERE id = ?
	`

	exec := sqlite.Executor(ctx, r.db)

	var product entity.Product
	var accountRevenueID, categoryID sql.NullInt64
	err := exec.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Code,
		&product.Name,
		&product.DefaultUomID,
		&product.ListPrice,
		&accountRevenueID,
		&product.AccountsCategory,
		&product.TaxesCategory,
		&categoryID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get product by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	product.AccountRevenueID = idPtr(accountRevenueID)

	if product.Translations, err = r.translations(ctx, exec, id); err != nil {
		return nil, err
	}

	product.CustomerTaxes, err = queryTaxes(ctx, exec, `
		SELECT t.id, t.name, t.group_id, t.rate
		FROM product_customer_taxes pt
		JOIN taxes t ON t.id = pt.tax_id
		WHERE pt.product_id = ?
		ORDER BY pt.sequence, pt.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product taxes: %w", err)
	}

	if categoryID.Valid {
		if product.Category, err = r.category(ctx, exec, categoryID.Int64); err != nil {
			return nil, err
		}
	}

	return &product, nil
}

// GetUom retrieves a unit of measure by its ID
func (r *ProductRepository) GetUom(ctx context.Context, id int64) (*entity.Uom, error) {
	query := `SELECT id, name, symbol, category_id, digits, rounding FROM uoms WHERE id = ?`

	var uom entity.Uom
	err := sqlite.Executor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&uom.ID,
		&uom.Name,
		&uom.Symbol,
		&uom.CategoryID,
		&uom.Digits,
		&uom.Rounding,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("uom %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get uom by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get uom: %w", err)
	}

	return &uom, nil
}

func (r *ProductRepository) translations(ctx context.Context, exec sqlite.Querier, productID int64) (map[string]string, error) {
	rows, err := exec.QueryContext(ctx,
		`SELECT lang, name FROM product_translations WHERE product_id = ?`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product translations: %w", err)
	}
	defer rows.Close()

	translations := make(map[string]string)
	for rows.Next() {
		var lang, name string
		if err := rows.Scan(&lang, &name); err != nil {
			return nil, fmt.Errorf("failed to scan product translation: %w", err)
		}
		translations[lang] = name
	}

	return translations, rows.Err()
}

func (r *ProductRepository) category(ctx context.Context, exec sqlite.Querier, id int64) (*entity.ProductCategory, error) {
	var category entity.ProductCategory
	var accountRevenueID sql.NullInt64

	err := exec.QueryRowContext(ctx,
		`SELECT id, name, account_revenue_id FROM product_categories WHERE id = ?`, id).Scan(
		&category.ID,
		&category.Name,
		&accountRevenueID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product category %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product category: %w", err)
	}
	category.AccountRevenueID = idPtr(accountRevenueID)

	category.CustomerTaxes, err = queryTaxes(ctx, exec, `
		SELECT t.id, t.name, t.group_id, t.rate
		FROM product_category_customer_taxes ct
		JOIN taxes t ON t.id = ct.tax_id
		WHERE ct.category_id = ?
		ORDER BY ct.sequence, ct.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get category taxes: %w", err)
	}

	return &category, nil
}

// queryTaxes runs a query selecting id, name, group_id and rate of taxes
func queryTaxes(ctx context.Context, exec sqlite.Querier, query string, args ...interface{}) ([]entity.Tax, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var taxes []entity.Tax
	for rows.Next() {
		var tax entity.Tax
		var groupID sql.NullInt64
		if err := rows.Scan(&tax.ID, &tax.Name, &groupID, &tax.Rate); err != nil {
			return nil, err
		}
		tax.GroupID = idPtr(groupID)
		taxes = append(taxes, tax)
	}

	return taxes, rows.Err()
}

// Verify interface compliance
var _ port.ProductRepository = (*ProductRepository)(nil)

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/expense"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ExpenseService manages project expenses and turns them into invoice lines
type ExpenseService interface {
	Create(ctx context.Context, e *entity.Expense) (*entity.Expense, error)
	Get(ctx context.Context, id int64) (*entity.Expense, error)
	Update(ctx context.Context, e *entity.Expense) (*entity.Expense, error)
	Delete(ctx context.Context, id int64) error
	ListByWork(ctx context.Context, workID int64) ([]*entity.Expense, error)

	// Copy duplicates expenses. defaults overrides fields of every copy;
	// the invoice line of a copy is cleared unless defaults sets it.
	Copy(ctx context.Context, ids []int64, defaults map[string]interface{}) ([]*entity.Expense, error)

	// OnChange returns the values the form should apply after field changed.
	// It never writes.
	OnChange(ctx context.Context, draft *entity.Expense, field string) (entity.Changes, error)

	// Invoice creates one invoice line per expense not yet invoiced and links
	// it, all in one transaction. Invoiced state is read from storage.
	Invoice(ctx context.Context, expenses []*entity.Expense) error

	// InvoiceByIDs loads the expenses and invoices them in one transaction.
	InvoiceByIDs(ctx context.Context, ids []int64) error
}

type expenseServiceImpl struct {
	expenseRepo     port.ExpenseRepository
	workRepo        port.WorkRepository
	productRepo     port.ProductRepository
	partyRepo       port.PartyRepository
	invoiceLineRepo port.InvoiceLineRepository
	txManager       port.TransactionManager
	defaultLanguage string
	logger          Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo port.ExpenseRepository,
	workRepo port.WorkRepository,
	productRepo port.ProductRepository,
	partyRepo port.PartyRepository,
	invoiceLineRepo port.InvoiceLineRepository,
	txManager port.TransactionManager,
	defaultLanguage string,
	logger Logger,
) ExpenseService {
	return &expenseServiceImpl{
		expenseRepo:     expenseRepo,
		workRepo:        workRepo,
		productRepo:     productRepo,
		partyRepo:       partyRepo,
		invoiceLineRepo: invoiceLineRepo,
		txManager:       txManager,
		defaultLanguage: defaultLanguage,
		logger:          logger,
	}
}

// Create validates and stores a new expense
func (s *expenseServiceImpl) Create(ctx context.Context, e *entity.Expense) (*entity.Expense, error) {
	e.InvoiceLineID = nil
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}

	now := time.Now()
	e.CreatedAt = now
	e.UpdatedAt = now
	if err := s.expenseRepo.Create(ctx, e); err != nil {
		s.logger.Error("Failed to create expense", "error", err, "product_id", e.ProductID)
		return nil, fmt.Errorf("create expense: %w", err)
	}

	s.logger.Info("Expense created", "expense_id", e.ID, "work_id", e.WorkID)
	return e, nil
}

// Get returns an expense by id
func (s *expenseServiceImpl) Get(ctx context.Context, id int64) (*entity.Expense, error) {
	e, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

// Update validates and stores the editable fields of an expense
func (s *expenseServiceImpl) Update(ctx context.Context, e *entity.Expense) (*entity.Expense, error) {
	existing, err := s.expenseRepo.GetByID(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("get expense %d: %w", e.ID, err)
	}

	// invoice_line is read-only outside invoicing
	e.InvoiceLineID = existing.InvoiceLineID
	e.CreatedAt = existing.CreatedAt
	if err := s.validate(ctx, e); err != nil {
		return nil, err
	}

	e.UpdatedAt = time.Now()
	if err := s.expenseRepo.Update(ctx, e); err != nil {
		s.logger.Error("Failed to update expense", "error", err, "expense_id", e.ID)
		return nil, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return e, nil
}

// Delete removes an expense
func (s *expenseServiceImpl) Delete(ctx context.Context, id int64) error {
	if err := s.expenseRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	s.logger.Info("Expense deleted", "expense_id", id)
	return nil
}

// ListByWork returns the expenses recorded directly on a work
func (s *expenseServiceImpl) ListByWork(ctx context.Context, workID int64) ([]*entity.Expense, error) {
	expenses, err := s.expenseRepo.GetByWorkID(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("list expenses of work %d: %w", workID, err)
	}
	return expenses, nil
}

// Copy duplicates the given expenses
func (s *expenseServiceImpl) Copy(ctx context.Context, ids []int64, defaults map[string]interface{}) ([]*entity.Expense, error) {
	overrides := make(map[string]interface{}, len(defaults)+1)
	overrides[entity.FieldInvoiceLine] = nil
	for k, v := range defaults {
		overrides[k] = v
	}

	var copies []*entity.Expense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, id := range ids {
			src, err := s.expenseRepo.GetByID(txCtx, id)
			if err != nil {
				return fmt.Errorf("get expense %d: %w", id, err)
			}

			dup := src.Clone()
			dup.ID = 0
			if err := applyDefaults(dup, overrides); err != nil {
				return err
			}
			if err := s.validate(txCtx, dup); err != nil {
				return fmt.Errorf("copy expense %d: %w", id, err)
			}

			now := time.Now()
			dup.CreatedAt = now
			dup.UpdatedAt = now
			if err := s.expenseRepo.Create(txCtx, dup); err != nil {
				return fmt.Errorf("copy expense %d: %w", id, err)
			}
			copies = append(copies, dup)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to copy expenses", "error", err, "ids", ids)
		return nil, err
	}

	s.logger.Info("Expenses copied", "source_ids", ids, "count", len(copies))
	return copies, nil
}

// OnChange resolves the records the form recalculation reads and applies it
func (s *expenseServiceImpl) OnChange(ctx context.Context, draft *entity.Expense, field string) (entity.Changes, error) {
	d := expense.Draft{
		Expense:         *draft,
		DefaultLanguage: s.defaultLanguage,
	}

	if draft.ProductID != 0 {
		product, err := s.productRepo.GetByID(ctx, draft.ProductID)
		if err != nil {
			return nil, fmt.Errorf("get product %d: %w", draft.ProductID, err)
		}
		defaultUom, err := s.productRepo.GetUom(ctx, product.DefaultUomID)
		if err != nil {
			return nil, fmt.Errorf("get default unit of product %d: %w", product.ID, err)
		}
		d.Product = product
		d.DefaultUom = defaultUom
	}

	if draft.UnitID != nil {
		unit, err := s.productRepo.GetUom(ctx, *draft.UnitID)
		if err != nil {
			return nil, fmt.Errorf("get unit %d: %w", *draft.UnitID, err)
		}
		d.Unit = unit
	}

	if draft.WorkID != nil && field == entity.FieldProduct {
		party, err := s.workParty(ctx, *draft.WorkID)
		if err != nil && !errors.Is(err, expense.ErrNoParty) {
			return nil, err
		}
		d.Party = party
	}

	return expense.OnChange(d, field), nil
}

// Invoice creates the invoice lines of the expenses not yet invoiced.
// The stored record decides whether an expense is invoiced, so stale or
// repeated entries in expenses are skipped.
func (s *expenseServiceImpl) Invoice(ctx context.Context, expenses []*entity.Expense) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.invoice(txCtx, expenses)
	})
}

// InvoiceByIDs loads and invoices expenses in one transaction
func (s *expenseServiceImpl) InvoiceByIDs(ctx context.Context, ids []int64) error {
	return s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		expenses, err := s.expenseRepo.GetByIDs(txCtx, ids)
		if err != nil {
			return fmt.Errorf("get expenses: %w", err)
		}
		return s.invoice(txCtx, expenses)
	})
}

// invoice runs inside the caller's transaction
func (s *expenseServiceImpl) invoice(ctx context.Context, expenses []*entity.Expense) error {
	parties := make(map[int64]*entity.Party)
	// invoice line of every expense already handled in this batch
	linked := make(map[int64]*int64, len(expenses))

	for _, exp := range expenses {
		if lineID, ok := linked[exp.ID]; ok {
			exp.InvoiceLineID = lineID
			continue
		}

		current, err := s.expenseRepo.GetByID(ctx, exp.ID)
		if err != nil {
			return fmt.Errorf("get expense %d: %w", exp.ID, err)
		}
		if current.IsInvoiced() {
			exp.InvoiceLineID = current.InvoiceLineID
			linked[exp.ID] = current.InvoiceLineID
			continue
		}

		if current.WorkID == nil {
			return fmt.Errorf("%w: expense %d has no work", expense.ErrNoParty, current.ID)
		}
		party, ok := parties[*current.WorkID]
		if !ok {
			party, err = s.workParty(ctx, *current.WorkID)
			if err != nil {
				return fmt.Errorf("expense %d: %w", current.ID, err)
			}
			parties[*current.WorkID] = party
		}

		lineCtx := port.WithInvoiceContext(ctx, port.InvoiceContext{
			Type:       entity.InvoiceTypeOutInvoice,
			Standalone: true,
		})
		line, err := s.invoiceLine(lineCtx, current, party)
		if err != nil {
			s.logger.Error("Failed to invoice expense", "error", err, "expense_id", current.ID)
			return err
		}

		if err := s.expenseRepo.SetInvoiceLine(lineCtx, current.ID, line.ID); err != nil {
			s.logger.Error("Failed to link invoice line", "error", err, "expense_id", current.ID, "invoice_line_id", line.ID)
			return fmt.Errorf("link expense %d to invoice line %d: %w", current.ID, line.ID, err)
		}
		lineID := line.ID
		exp.InvoiceLineID = &lineID
		linked[exp.ID] = &lineID

		s.logger.Info("Expense invoiced", "expense_id", current.ID, "invoice_line_id", line.ID, "party_id", party.ID)
	}
	return nil
}

// invoiceLine builds and stores the invoice line of one expense
func (s *expenseServiceImpl) invoiceLine(ctx context.Context, exp *entity.Expense, party *entity.Party) (*entity.InvoiceLine, error) {
	product, err := s.productRepo.GetByID(ctx, exp.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", exp.ProductID, err)
	}

	account, err := product.AccountRevenueUsed()
	if err != nil {
		return nil, err
	}

	line := &entity.InvoiceLine{
		PartyID:     party.ID,
		ProductID:   product.ID,
		Description: exp.Name,
		UnitPrice:   exp.UnitPrice,
		UnitID:      exp.UnitID,
		AccountID:   account,
	}
	line.TaxIDs = customerTaxes(product, party, line.TaxRulePattern())
	line.Type = entity.InvoiceLineTypeLine
	line.InvoiceType = entity.InvoiceTypeOutInvoice
	line.Quantity = exp.Quantity

	if err := s.invoiceLineRepo.Create(ctx, line); err != nil {
		return nil, fmt.Errorf("create invoice line for expense %d: %w", exp.ID, err)
	}
	return line, nil
}

// customerTaxes resolves the taxes of a product sold to party
func customerTaxes(product *entity.Product, party *entity.Party, pattern entity.TaxRulePattern) []int64 {
	rule := party.CustomerTaxRule

	taxes := []int64{}
	for _, tax := range product.CustomerTaxesUsed() {
		if rule != nil {
			taxes = append(taxes, rule.Apply(&tax, pattern)...)
			continue
		}
		taxes = append(taxes, tax.ID)
	}
	if rule != nil {
		taxes = append(taxes, rule.Apply(nil, pattern)...)
	}
	return taxes
}

// workParty returns the customer of a work
func (s *expenseServiceImpl) workParty(ctx context.Context, workID int64) (*entity.Party, error) {
	work, err := s.workRepo.GetByID(ctx, workID)
	if err != nil {
		return nil, fmt.Errorf("get work %d: %w", workID, err)
	}
	if work.PartyID == nil {
		return nil, expense.ErrNoParty
	}
	party, err := s.partyRepo.GetByID(ctx, *work.PartyID)
	if err != nil {
		return nil, fmt.Errorf("get party %d: %w", *work.PartyID, err)
	}
	return party, nil
}

// validate checks an expense against its product and unit
func (s *expenseServiceImpl) validate(ctx context.Context, e *entity.Expense) error {
	if e.ProductID == 0 {
		return expense.Validate(e, nil, nil)
	}

	product, err := s.productRepo.GetByID(ctx, e.ProductID)
	if err != nil {
		return fmt.Errorf("get product %d: %w", e.ProductID, err)
	}
	defaultUom, err := s.productRepo.GetUom(ctx, product.DefaultUomID)
	if err != nil {
		return fmt.Errorf("get default unit of product %d: %w", product.ID, err)
	}

	var unit *entity.Uom
	if e.UnitID != nil {
		unit, err = s.productRepo.GetUom(ctx, *e.UnitID)
		if err != nil {
			return fmt.Errorf("get unit %d: %w", *e.UnitID, err)
		}
	}
	return expense.Validate(e, defaultUom, unit)
}

package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/expense"
)

// WorkService manages the expense side of project works
type WorkService interface {
	Create(ctx context.Context, work *entity.Work) (*entity.Work, error)
	Get(ctx context.Context, id int64) (*entity.Work, error)

	// ExpensesToInvoice returns the expenses of work and of the descendants
	// invoiced together with it, depth first. A nil test uses the work's own
	// group invoicing key.
	ExpensesToInvoice(ctx context.Context, work *entity.Work, test *entity.GroupInvoiceKey) ([]*entity.Expense, error)

	// Invoice invoices the expenses of the works, then runs the base work invoicing.
	Invoice(ctx context.Context, workIDs []int64) error

	// ExportExpenses writes the expenses of a work subtree as a spreadsheet.
	ExportExpenses(ctx context.Context, workID int64, w io.Writer) error
}

type workServiceImpl struct {
	workRepo       port.WorkRepository
	expenseRepo    port.ExpenseRepository
	productRepo    port.ProductRepository
	expenseService ExpenseService
	baseInvoicer   port.WorkInvoicer
	sheetWriter    port.ExpenseSheetWriter
	txManager      port.TransactionManager
	logger         Logger
}

// NewWorkService creates a new WorkService
func NewWorkService(
	workRepo port.WorkRepository,
	expenseRepo port.ExpenseRepository,
	productRepo port.ProductRepository,
	expenseService ExpenseService,
	baseInvoicer port.WorkInvoicer,
	sheetWriter port.ExpenseSheetWriter,
	txManager port.TransactionManager,
	logger Logger,
) WorkService {
	return &workServiceImpl{
		workRepo:       workRepo,
		expenseRepo:    expenseRepo,
		productRepo:    productRepo,
		expenseService: expenseService,
		baseInvoicer:   baseInvoicer,
		sheetWriter:    sheetWriter,
		txManager:      txManager,
		logger:         logger,
	}
}

// Create stores a new work
func (s *workServiceImpl) Create(ctx context.Context, work *entity.Work) (*entity.Work, error) {
	if work.Type == "" {
		work.Type = entity.WorkTypeTask
	}
	if work.Type != entity.WorkTypeProject && work.Type != entity.WorkTypeTask {
		return nil, fmt.Errorf("%w: invalid work type %q", expense.ErrInvalid, work.Type)
	}
	if work.CreatedAt.IsZero() {
		work.CreatedAt = time.Now()
	}
	if err := s.workRepo.Create(ctx, work); err != nil {
		s.logger.Error("Failed to create work", "error", err, "name", work.Name)
		return nil, fmt.Errorf("create work: %w", err)
	}
	return work, nil
}

// Get returns a work by id
func (s *workServiceImpl) Get(ctx context.Context, id int64) (*entity.Work, error) {
	work, err := s.workRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get work %d: %w", id, err)
	}
	return work, nil
}

// ExpensesToInvoice walks the work tree collecting expenses
func (s *workServiceImpl) ExpensesToInvoice(ctx context.Context, work *entity.Work, test *entity.GroupInvoiceKey) ([]*entity.Expense, error) {
	if test == nil {
		key := work.GroupInvoiceKey()
		test = &key
	}

	expenses, err := s.expenseRepo.GetByWorkID(ctx, work.ID)
	if err != nil {
		return nil, fmt.Errorf("get expenses of work %d: %w", work.ID, err)
	}
	lines := append([]*entity.Expense{}, expenses...)

	children, err := s.workRepo.GetChildren(ctx, work.ID)
	if err != nil {
		return nil, fmt.Errorf("get children of work %d: %w", work.ID, err)
	}
	for _, child := range children {
		// sub-projects billed to someone else are invoiced on their own
		if child.IsProject() && child.GroupInvoiceKey() != *test {
			continue
		}
		childLines, err := s.ExpensesToInvoice(ctx, child, test)
		if err != nil {
			return nil, err
		}
		lines = append(lines, childLines...)
	}
	return lines, nil
}

// Invoice invoices the expenses of the works in one transaction
func (s *workServiceImpl) Invoice(ctx context.Context, workIDs []int64) error {
	s.logger.Info("Invoicing works", "work_ids", workIDs)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		works := make([]*entity.Work, 0, len(workIDs))
		var expenses []*entity.Expense
		for _, id := range workIDs {
			work, err := s.workRepo.GetByID(txCtx, id)
			if err != nil {
				return fmt.Errorf("get work %d: %w", id, err)
			}
			lines, err := s.ExpensesToInvoice(txCtx, work, nil)
			if err != nil {
				return err
			}
			works = append(works, work)
			expenses = append(expenses, lines...)
		}

		if err := s.expenseService.Invoice(txCtx, expenses); err != nil {
			return fmt.Errorf("invoice expenses: %w", err)
		}
		if err := s.baseInvoicer.Invoice(txCtx, works); err != nil {
			return fmt.Errorf("invoice works: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to invoice works", "error", err, "work_ids", workIDs)
		return err
	}

	s.logger.Info("Works invoiced", "work_ids", workIDs)
	return nil
}

// ExportExpenses writes the subtree expenses of a work
func (s *workServiceImpl) ExportExpenses(ctx context.Context, workID int64, w io.Writer) error {
	root, err := s.workRepo.GetByID(ctx, workID)
	if err != nil {
		return fmt.Errorf("get work %d: %w", workID, err)
	}

	expenses, err := s.ExpensesToInvoice(ctx, root, nil)
	if err != nil {
		return err
	}

	works := map[int64]*entity.Work{root.ID: root}
	products := make(map[int64]*entity.Product)
	units := make(map[int64]*entity.Uom)

	rows := make([]port.ExpenseRow, 0, len(expenses))
	for _, exp := range expenses {
		row := port.ExpenseRow{
			Description:   exp.Name,
			Quantity:      exp.Quantity,
			UnitPrice:     exp.UnitPrice,
			InvoiceLineID: exp.InvoiceLineID,
		}
		if exp.UnitPrice.Valid {
			row.Amount = decimal.NewFromFloat(exp.Quantity).Mul(exp.UnitPrice.Decimal).Round(entity.AmountDigits)
		}

		if exp.WorkID != nil {
			work, ok := works[*exp.WorkID]
			if !ok {
				if work, err = s.workRepo.GetByID(ctx, *exp.WorkID); err != nil {
					return fmt.Errorf("get work %d: %w", *exp.WorkID, err)
				}
				works[work.ID] = work
			}
			row.Work = work.Name
		}

		product, ok := products[exp.ProductID]
		if !ok {
			if product, err = s.productRepo.GetByID(ctx, exp.ProductID); err != nil {
				return fmt.Errorf("get product %d: %w", exp.ProductID, err)
			}
			products[product.ID] = product
		}
		row.Product = product.Name

		if exp.UnitID != nil {
			unit, ok := units[*exp.UnitID]
			if !ok {
				if unit, err = s.productRepo.GetUom(ctx, *exp.UnitID); err != nil {
					return fmt.Errorf("get unit %d: %w", *exp.UnitID, err)
				}
				units[unit.ID] = unit
			}
			row.Unit = unit.Symbol
		}

		rows = append(rows, row)
	}

	if err := s.sheetWriter.WriteExpenses(w, root.Name, rows); err != nil {
		s.logger.Error("Failed to write expense sheet", "error", err, "work_id", workID)
		return fmt.Errorf("write expense sheet: %w", err)
	}

	s.logger.Info("Expense sheet exported", "work_id", workID, "rows", len(rows))
	return nil
}

// loggingWorkInvoicer stands in for the base work invoicing, which is not
// part of the expense flow.
type loggingWorkInvoicer struct {
	logger Logger
}

// NewLoggingWorkInvoicer returns a WorkInvoicer that only records the hand-off
func NewLoggingWorkInvoicer(logger Logger) port.WorkInvoicer {
	return &loggingWorkInvoicer{logger: logger}
}

func (i *loggingWorkInvoicer) Invoice(ctx context.Context, works []*entity.Work) error {
	for _, w := range works {
		i.logger.Info("Base work invoicing delegated", "work_id", w.ID, "type", w.Type)
	}
	return nil
}

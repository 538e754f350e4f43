package service

import (
	"context"
	"fmt"
	"io"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
)

func int64Ptr(v int64) *int64 { return &v }

// Mock repositories keep records in maps; the func fields override a method.

type mockExpenseRepo struct {
	expenses           map[int64]*entity.Expense
	nextID             int64
	setInvoiceLineFunc func(ctx context.Context, id int64, invoiceLineID int64) error
}

func newMockExpenseRepo(expenses ...*entity.Expense) *mockExpenseRepo {
	m := &mockExpenseRepo{expenses: make(map[int64]*entity.Expense), nextID: 100}
	for _, e := range expenses {
		m.expenses[e.ID] = e
	}
	return m
}

func (m *mockExpenseRepo) Create(ctx context.Context, e *entity.Expense) error {
	m.nextID++
	e.ID = m.nextID
	m.expenses[e.ID] = e.Clone()
	return nil
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return nil, fmt.Errorf("expense %d: %w", id, port.ErrNotFound)
	}
	return e.Clone(), nil
}

func (m *mockExpenseRepo) GetByIDs(ctx context.Context, ids []int64) ([]*entity.Expense, error) {
	var expenses []*entity.Expense
	for _, id := range ids {
		e, err := m.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func (m *mockExpenseRepo) GetByWorkID(ctx context.Context, workID int64) ([]*entity.Expense, error) {
	var expenses []*entity.Expense
	for id := int64(0); id <= m.nextID; id++ {
		if e, ok := m.expenses[id]; ok && e.WorkID != nil && *e.WorkID == workID {
			expenses = append(expenses, e.Clone())
		}
	}
	return expenses, nil
}

func (m *mockExpenseRepo) Update(ctx context.Context, e *entity.Expense) error {
	existing, ok := m.expenses[e.ID]
	if !ok {
		return port.ErrNotFound
	}
	updated := e.Clone()
	updated.InvoiceLineID = existing.InvoiceLineID
	m.expenses[e.ID] = updated
	return nil
}

func (m *mockExpenseRepo) SetInvoiceLine(ctx context.Context, id int64, invoiceLineID int64) error {
	if m.setInvoiceLineFunc != nil {
		return m.setInvoiceLineFunc(ctx, id, invoiceLineID)
	}
	e, ok := m.expenses[id]
	if !ok {
		return port.ErrNotFound
	}
	if e.InvoiceLineID != nil {
		return port.ErrAlreadyInvoiced
	}
	e.InvoiceLineID = int64Ptr(invoiceLineID)
	return nil
}

func (m *mockExpenseRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := m.expenses[id]; !ok {
		return port.ErrNotFound
	}
	delete(m.expenses, id)
	return nil
}

type mockWorkRepo struct {
	works map[int64]*entity.Work
}

func newMockWorkRepo(works ...*entity.Work) *mockWorkRepo {
	m := &mockWorkRepo{works: make(map[int64]*entity.Work)}
	for _, w := range works {
		m.works[w.ID] = w
	}
	return m
}

func (m *mockWorkRepo) Create(ctx context.Context, work *entity.Work) error {
	work.ID = int64(len(m.works) + 1)
	m.works[work.ID] = work
	return nil
}

func (m *mockWorkRepo) GetByID(ctx context.Context, id int64) (*entity.Work, error) {
	w, ok := m.works[id]
	if !ok {
		return nil, fmt.Errorf("work %d: %w", id, port.ErrNotFound)
	}
	return w, nil
}

// GetChildren returns children ordered by sequence then id
func (m *mockWorkRepo) GetChildren(ctx context.Context, parentID int64) ([]*entity.Work, error) {
	var children []*entity.Work
	for seq := 0; seq <= 100; seq++ {
		for id := int64(0); id <= int64(len(m.works))+10; id++ {
			w, ok := m.works[id]
			if ok && w.Sequence == seq && w.ParentID != nil && *w.ParentID == parentID {
				children = append(children, w)
			}
		}
	}
	return children, nil
}

type mockProductRepo struct {
	products map[int64]*entity.Product
	uoms     map[int64]*entity.Uom
}

func (m *mockProductRepo) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, port.ErrNotFound)
	}
	return p, nil
}

func (m *mockProductRepo) GetUom(ctx context.Context, id int64) (*entity.Uom, error) {
	u, ok := m.uoms[id]
	if !ok {
		return nil, fmt.Errorf("uom %d: %w", id, port.ErrNotFound)
	}
	return u, nil
}

type mockPartyRepo struct {
	parties map[int64]*entity.Party
}

func (m *mockPartyRepo) GetByID(ctx context.Context, id int64) (*entity.Party, error) {
	p, ok := m.parties[id]
	if !ok {
		return nil, fmt.Errorf("party %d: %w", id, port.ErrNotFound)
	}
	return p, nil
}

type mockInvoiceLineRepo struct {
	lines      []*entity.InvoiceLine
	contexts   []port.InvoiceContext
	createFunc func(ctx context.Context, line *entity.InvoiceLine) error
}

func (m *mockInvoiceLineRepo) Create(ctx context.Context, line *entity.InvoiceLine) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, line)
	}
	ic, _ := port.InvoiceContextFrom(ctx)
	m.contexts = append(m.contexts, ic)
	line.ID = int64(len(m.lines) + 1)
	m.lines = append(m.lines, line)
	return nil
}

func (m *mockInvoiceLineRepo) GetByID(ctx context.Context, id int64) (*entity.InvoiceLine, error) {
	if id < 1 || int(id) > len(m.lines) {
		return nil, port.ErrNotFound
	}
	return m.lines[id-1], nil
}

type mockTxKey struct{}

// mockTxManager counts the transactions it opens; nested calls join the
// outer one like sqlite.DB does.
type mockTxManager struct {
	calls               int
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(mockTxKey{}) != nil {
		return fn(ctx)
	}
	m.calls++
	txCtx := context.WithValue(ctx, mockTxKey{}, true)
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(txCtx, fn)
	}
	return fn(txCtx)
}

type mockWorkInvoicer struct {
	works []*entity.Work
	err   error
}

func (m *mockWorkInvoicer) Invoice(ctx context.Context, works []*entity.Work) error {
	m.works = append(m.works, works...)
	return m.err
}

type mockSheetWriter struct {
	title string
	rows  []port.ExpenseRow
}

func (m *mockSheetWriter) WriteExpenses(w io.Writer, title string, rows []port.ExpenseRow) error {
	m.title = title
	m.rows = rows
	return nil
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/expense"
)

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}

type mockExpenseService struct {
	createFunc       func(ctx context.Context, e *entity.Expense) (*entity.Expense, error)
	getFunc          func(ctx context.Context, id int64) (*entity.Expense, error)
	copyFunc         func(ctx context.Context, ids []int64, defaults map[string]interface{}) ([]*entity.Expense, error)
	onChangeFunc     func(ctx context.Context, draft *entity.Expense, field string) (entity.Changes, error)
	invoiceByIDsFunc func(ctx context.Context, ids []int64) error
}

func (m *mockExpenseService) Create(ctx context.Context, e *entity.Expense) (*entity.Expense, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, e)
	}
	e.ID = 1
	return e, nil
}

func (m *mockExpenseService) Get(ctx context.Context, id int64) (*entity.Expense, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &entity.Expense{ID: id}, nil
}

func (m *mockExpenseService) Update(ctx context.Context, e *entity.Expense) (*entity.Expense, error) {
	return e, nil
}

func (m *mockExpenseService) Delete(ctx context.Context, id int64) error {
	return nil
}

func (m *mockExpenseService) ListByWork(ctx context.Context, workID int64) ([]*entity.Expense, error) {
	return nil, nil
}

func (m *mockExpenseService) Copy(ctx context.Context, ids []int64, defaults map[string]interface{}) ([]*entity.Expense, error) {
	if m.copyFunc != nil {
		return m.copyFunc(ctx, ids, defaults)
	}
	return nil, nil
}

func (m *mockExpenseService) OnChange(ctx context.Context, draft *entity.Expense, field string) (entity.Changes, error) {
	if m.onChangeFunc != nil {
		return m.onChangeFunc(ctx, draft, field)
	}
	return entity.Changes{}, nil
}

func (m *mockExpenseService) Invoice(ctx context.Context, expenses []*entity.Expense) error {
	return nil
}

func (m *mockExpenseService) InvoiceByIDs(ctx context.Context, ids []int64) error {
	if m.invoiceByIDsFunc != nil {
		return m.invoiceByIDsFunc(ctx, ids)
	}
	return nil
}

type mockWorkService struct {
	getFunc     func(ctx context.Context, id int64) (*entity.Work, error)
	invoiceFunc func(ctx context.Context, workIDs []int64) error
	exportFunc  func(ctx context.Context, workID int64, w io.Writer) error
}

func (m *mockWorkService) Create(ctx context.Context, work *entity.Work) (*entity.Work, error) {
	work.ID = 1
	return work, nil
}

func (m *mockWorkService) Get(ctx context.Context, id int64) (*entity.Work, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, id)
	}
	return &entity.Work{ID: id}, nil
}

func (m *mockWorkService) ExpensesToInvoice(ctx context.Context, work *entity.Work, test *entity.GroupInvoiceKey) ([]*entity.Expense, error) {
	return nil, nil
}

func (m *mockWorkService) Invoice(ctx context.Context, workIDs []int64) error {
	if m.invoiceFunc != nil {
		return m.invoiceFunc(ctx, workIDs)
	}
	return nil
}

func (m *mockWorkService) ExportExpenses(ctx context.Context, workID int64, w io.Writer) error {
	if m.exportFunc != nil {
		return m.exportFunc(ctx, workID, w)
	}
	return nil
}

func newTestServer(es *mockExpenseService, ws *mockWorkService) *Server {
	return NewServer(DefaultServerConfig(), es, ws, nopLogger{})
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(&mockExpenseService{}, &mockWorkService{})

	rec := doRequest(s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestCreateExpense(t *testing.T) {
	var got *entity.Expense
	es := &mockExpenseService{
		createFunc: func(ctx context.Context, e *entity.Expense) (*entity.Expense, error) {
			got = e
			e.ID = 42
			return e, nil
		},
	}
	s := newTestServer(es, &mockWorkService{})

	rec := doRequest(s, http.MethodPost, "/api/expenses",
		`{"name":"Taxi","product_id":3,"quantity":2,"unit_price":"12.50","work_id":5}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, "Taxi", got.Name)
	assert.Equal(t, int64(3), got.ProductID)
	require.NotNil(t, got.WorkID)
	assert.Equal(t, int64(5), *got.WorkID)
	assert.True(t, got.UnitPrice.Valid)
	assert.Equal(t, "12.5", got.UnitPrice.Decimal.String())
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid", fmt.Errorf("%w: name is required", expense.ErrInvalid), http.StatusBadRequest},
		{"no party", fmt.Errorf("expense 1: %w", expense.ErrNoParty), http.StatusBadRequest},
		{"not found", fmt.Errorf("get expense 9: %w", port.ErrNotFound), http.StatusNotFound},
		{"already invoiced", fmt.Errorf("link: %w", port.ErrAlreadyInvoiced), http.StatusConflict},
		{"other", fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			es := &mockExpenseService{
				getFunc: func(ctx context.Context, id int64) (*entity.Expense, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(es, &mockWorkService{})

			rec := doRequest(s, http.MethodGet, "/api/expenses/9", "")

			assert.Equal(t, tt.want, rec.Code)
			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestGetExpense_InvalidID(t *testing.T) {
	s := newTestServer(&mockExpenseService{}, &mockWorkService{})

	rec := doRequest(s, http.MethodGet, "/api/expenses/abc", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCopyExpense(t *testing.T) {
	var gotIDs []int64
	var gotDefaults map[string]interface{}
	es := &mockExpenseService{
		copyFunc: func(ctx context.Context, ids []int64, defaults map[string]interface{}) ([]*entity.Expense, error) {
			gotIDs = ids
			gotDefaults = defaults
			return []*entity.Expense{{ID: 2, Name: "Taxi (copy)"}}, nil
		},
	}
	s := newTestServer(es, &mockWorkService{})

	rec := doRequest(s, http.MethodPost, "/api/expenses/1/copy", `{"defaults":{"name":"Taxi (copy)"}}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []int64{1}, gotIDs)
	assert.Equal(t, "Taxi (copy)", gotDefaults["name"])

	rec = doRequest(s, http.MethodPost, "/api/expenses/1/copy", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, gotDefaults)
}

func TestOnChangeExpense(t *testing.T) {
	var gotField string
	es := &mockExpenseService{
		onChangeFunc: func(ctx context.Context, draft *entity.Expense, field string) (entity.Changes, error) {
			gotField = field
			return entity.Changes{entity.FieldUnitDigits: 3}, nil
		},
	}
	s := newTestServer(es, &mockWorkService{})

	rec := doRequest(s, http.MethodPost, "/api/expenses/onchange/unit", `{"product_id":1,"unit_id":2}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, entity.FieldUnit, gotField)

	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, float64(3), resp.Data[entity.FieldUnitDigits])
}

func TestInvoiceExpenses(t *testing.T) {
	var gotIDs []int64
	es := &mockExpenseService{
		invoiceByIDsFunc: func(ctx context.Context, ids []int64) error {
			gotIDs = ids
			return nil
		},
	}
	s := newTestServer(es, &mockWorkService{})

	rec := doRequest(s, http.MethodPost, "/api/expenses/invoice", `{"ids":[1,2]}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{1, 2}, gotIDs)

	rec = doRequest(s, http.MethodPost, "/api/expenses/invoice", `{"ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInvoiceWorks_AlreadyInvoiced(t *testing.T) {
	ws := &mockWorkService{
		invoiceFunc: func(ctx context.Context, workIDs []int64) error {
			return fmt.Errorf("invoice expenses: %w", port.ErrAlreadyInvoiced)
		},
	}
	s := newTestServer(&mockExpenseService{}, ws)

	rec := doRequest(s, http.MethodPost, "/api/works/invoice", `{"ids":[1]}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExportExpenses(t *testing.T) {
	ws := &mockWorkService{
		exportFunc: func(ctx context.Context, workID int64, w io.Writer) error {
			_, err := w.Write([]byte("xlsx"))
			return err
		},
	}
	s := newTestServer(&mockExpenseService{}, ws)

	rec := doRequest(s, http.MethodGet, "/api/works/7/expenses/export", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "work_7_expenses.xlsx")
	assert.Equal(t, "xlsx", rec.Body.String())
}

func TestListWorkExpenses_Empty(t *testing.T) {
	s := newTestServer(&mockExpenseService{}, &mockWorkService{})

	rec := doRequest(s, http.MethodGet, "/api/works/3/expenses", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":[]}`, rec.Body.String())
}

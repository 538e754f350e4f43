package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
	"github.com/NaN-tic/trytond-project-expenses/internal/application/service"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/expense"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handlers contains all HTTP request handlers
type Handlers struct {
	expenseService service.ExpenseService
	workService    service.WorkService
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	expenseService service.ExpenseService,
	workService service.WorkService,
	logger Logger,
) *Handlers {
	return &Handlers{
		expenseService: expenseService,
		workService:    workService,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CopyRequest is the body of POST /api/expenses/:id/copy
type CopyRequest struct {
	Defaults map[string]interface{} `json:"defaults"`
}

// IDsRequest is the body of the invoicing endpoints
type IDsRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateExpense handles POST /api/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req entity.Expense
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid expense", err)
		return
	}

	created, err := h.expenseService.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, "Failed to create expense", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: created})
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	e, err := h.expenseService.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get expense", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: e})
}

// UpdateExpense handles PUT /api/expenses/:id
func (h *Handlers) UpdateExpense(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req entity.Expense
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid expense", err)
		return
	}
	req.ID = id

	updated, err := h.expenseService.Update(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, "Failed to update expense", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: updated})
}

// DeleteExpense handles DELETE /api/expenses/:id
func (h *Handlers) DeleteExpense(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.expenseService.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "Failed to delete expense", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// CopyExpense handles POST /api/expenses/:id/copy
func (h *Handlers) CopyExpense(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req CopyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "invalid copy request", err)
			return
		}
	}

	copies, err := h.expenseService.Copy(c.Request.Context(), []int64{id}, req.Defaults)
	if err != nil {
		h.fail(c, "Failed to copy expense", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: copies})
}

// OnChangeExpense handles POST /api/expenses/onchange/:field
func (h *Handlers) OnChangeExpense(c *gin.Context) {
	field := c.Param("field")

	var draft entity.Expense
	if err := c.ShouldBindJSON(&draft); err != nil {
		h.badRequest(c, "invalid expense draft", err)
		return
	}

	changes, err := h.expenseService.OnChange(c.Request.Context(), &draft, field)
	if err != nil {
		h.fail(c, "Failed to compute expense changes", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: changes})
}

// InvoiceExpenses handles POST /api/expenses/invoice
func (h *Handlers) InvoiceExpenses(c *gin.Context) {
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid invoice request", err)
		return
	}

	if err := h.expenseService.InvoiceByIDs(c.Request.Context(), req.IDs); err != nil {
		h.fail(c, "Failed to invoice expenses", err)
		return
	}

	h.logger.Info("Expenses invoiced", "ids", req.IDs)
	c.JSON(http.StatusOK, Response{Success: true})
}

// CreateWork handles POST /api/works
func (h *Handlers) CreateWork(c *gin.Context) {
	var req entity.Work
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid work", err)
		return
	}
	work, err := h.workService.Create(c.Request.Context(), &req)
	if err != nil {
		h.fail(c, "Failed to create work", err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: work})
}

// GetWork handles GET /api/works/:id
func (h *Handlers) GetWork(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	work, err := h.workService.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to get work", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: work})
}

// ListWorkExpenses handles GET /api/works/:id/expenses
func (h *Handlers) ListWorkExpenses(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	expenses, err := h.expenseService.ListByWork(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "Failed to list work expenses", err)
		return
	}
	if expenses == nil {
		expenses = []*entity.Expense{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

// ExpensesToInvoice handles GET /api/works/:id/expenses/to-invoice
func (h *Handlers) ExpensesToInvoice(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	work, err := h.workService.Get(ctx, id)
	if err != nil {
		h.fail(c, "Failed to get work", err)
		return
	}

	expenses, err := h.workService.ExpensesToInvoice(ctx, work, nil)
	if err != nil {
		h.fail(c, "Failed to collect expenses to invoice", err)
		return
	}
	if expenses == nil {
		expenses = []*entity.Expense{}
	}

	c.JSON(http.StatusOK, Response{Success: true, Data: expenses})
}

// ExportExpenses handles GET /api/works/:id/expenses/export
func (h *Handlers) ExportExpenses(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := h.workService.ExportExpenses(c.Request.Context(), id, &buf); err != nil {
		h.fail(c, "Failed to export expenses", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="work_%d_expenses.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// InvoiceWorks handles POST /api/works/invoice
func (h *Handlers) InvoiceWorks(c *gin.Context) {
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid invoice request", err)
		return
	}

	if err := h.workService.Invoice(c.Request.Context(), req.IDs); err != nil {
		h.fail(c, "Failed to invoice works", err)
		return
	}

	c.JSON(http.StatusOK, Response{Success: true})
}

// pathID parses the :id parameter, answering 400 when it is not a number
func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		h.logger.Error("Invalid ID", "id", idStr, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid ID",
		})
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, msg string, err error) {
	h.logger.Error("Invalid request body", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   msg + ": " + err.Error(),
	})
}

// fail logs err and answers with the status its kind maps to
func (h *Handlers) fail(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "error", err)
	c.JSON(statusFor(err), Response{
		Success: false,
		Error:   err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, expense.ErrInvalid), errors.Is(err, expense.ErrNoParty):
		return http.StatusBadRequest
	case errors.Is(err, port.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, port.ErrAlreadyInvoiced):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

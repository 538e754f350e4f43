package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/NaN-tic/trytond-project-expenses/internal/application/port"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const maxSheetNameLength = 31

var headers = []interface{}{
	"Work", "Description", "Product", "Quantity", "Unit", "Unit Price", "Amount", "Invoiced",
}

// ExpenseSheet writes expense rows to an xlsx workbook
type ExpenseSheet struct {
	logger *zap.Logger
}

// NewExpenseSheet creates a new expense sheet writer
func NewExpenseSheet(logger *zap.Logger) *ExpenseSheet {
	return &ExpenseSheet{logger: logger}
}

// WriteExpenses renders rows on a single sheet named after title,
// followed by a total row, and writes the workbook to w.
func (es *ExpenseSheet) WriteExpenses(w io.Writer, title string, rows []port.ExpenseRow) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := SheetName(title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "H1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	total := decimal.Zero
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		var unitPrice interface{}
		if row.UnitPrice.Valid {
			unitPrice = row.UnitPrice.Decimal.InexactFloat64()
		}
		invoiced := "No"
		if row.InvoiceLineID != nil {
			invoiced = "Yes"
		}

		values := []interface{}{
			row.Work,
			row.Description,
			row.Product,
			row.Quantity,
			row.Unit,
			unitPrice,
			row.Amount.InexactFloat64(),
			invoiced,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
		total = total.Add(row.Amount)
	}

	totalRow := len(rows) + 2
	if err := f.SetCellValue(sheet, fmt.Sprintf("F%d", totalRow), "Total"); err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, fmt.Sprintf("G%d", totalRow), total.InexactFloat64()); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("F%d", totalRow), fmt.Sprintf("G%d", totalRow), headerStyle); err != nil {
		return err
	}

	if err := f.SetColWidth(sheet, "A", "C", 30); err != nil {
		es.logger.Warn("Failed to set column width", zap.String("sheet", sheet), zap.Error(err))
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	es.logger.Info("Expense sheet written",
		zap.String("sheet", sheet),
		zap.Int("rows", len(rows)),
		zap.String("total", total.StringFixed(2)))

	return nil
}

// SheetName turns title into a valid worksheet name
func SheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))

	if runes := []rune(name); len(runes) > maxSheetNameLength {
		name = string(runes[:maxSheetNameLength])
	}
	if name == "" {
		return "Expenses"
	}
	return name
}

// Verify interface compliance
var _ port.ExpenseSheetWriter = (*ExpenseSheet)(nil)

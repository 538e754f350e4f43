package entity

// Work type constants
const (
	WorkTypeProject = "project"
	WorkTypeTask    = "task"
)

// Invoice type constants
const (
	InvoiceTypeOutInvoice    = "out_invoice"
	InvoiceTypeOutCreditNote = "out_credit_note"
	InvoiceTypeInInvoice     = "in_invoice"
	InvoiceTypeInCreditNote  = "in_credit_note"
)

// Invoice line type constants
const (
	InvoiceLineTypeLine     = "line"
	InvoiceLineTypeSubtotal = "subtotal"
	InvoiceLineTypeTitle    = "title"
	InvoiceLineTypeComment  = "comment"
)

// Expense field names used by on-change proposals
const (
	FieldName               = "name"
	FieldProduct            = "product"
	FieldQuantity           = "quantity"
	FieldUnit               = "unit"
	FieldUnitRecName        = "unit.rec_name"
	FieldUnitDigits         = "unit_digits"
	FieldUnitPrice          = "unit_price"
	FieldProductUomCategory = "product_uom_category"
	FieldWork               = "work"
	FieldInvoiceLine        = "invoice_line"
)

const (
	// DefaultUnitDigits is the quantity precision used when no unit is chosen.
	DefaultUnitDigits = 2

	// UnitPriceDigits is the number of decimals stored for expense unit prices.
	UnitPriceDigits = 4

	// AmountDigits is the number of decimals of computed line amounts.
	AmountDigits = 2
)

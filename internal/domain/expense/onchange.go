// Package expense holds the form recalculation rules of project expenses.
// Everything here is pure: callers load the related records and apply the
// returned proposals themselves.
package expense

import (
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
)

// Draft is the in-memory state of an expense form together with the
// related records its recalculation reads.
type Draft struct {
	Expense entity.Expense

	// Product is the selected product, nil when none is selected.
	Product *entity.Product
	// DefaultUom is the default unit of Product.
	DefaultUom *entity.Uom
	// Unit is the currently chosen unit, nil when none is chosen.
	Unit *entity.Uom
	// Party is the customer of the expense work, nil when unknown.
	Party *entity.Party
	// DefaultLanguage is used when the party has no language.
	DefaultLanguage string
}

// OnChange returns the field values to propose after field changed.
// Unknown fields propose nothing.
func OnChange(d Draft, field string) entity.Changes {
	switch field {
	case entity.FieldProduct:
		changes := OnChangeProduct(d)
		if category := OnChangeWithProductUomCategory(d.Product, d.DefaultUom); category != nil {
			changes[entity.FieldProductUomCategory] = *category
		} else {
			changes[entity.FieldProductUomCategory] = nil
		}
		return changes
	case entity.FieldUnit:
		return entity.Changes{entity.FieldUnitDigits: OnChangeWithUnitDigits(d.Unit)}
	default:
		return entity.Changes{}
	}
}

// OnChangeProduct proposes unit, unit price and description for the
// selected product.
func OnChangeProduct(d Draft) entity.Changes {
	if d.Product == nil {
		return entity.Changes{}
	}
	changes := entity.Changes{}

	if d.DefaultUom != nil && (d.Unit == nil || d.Unit.CategoryID != d.DefaultUom.CategoryID) {
		changes[entity.FieldUnit] = d.DefaultUom.ID
		changes[entity.FieldUnitRecName] = d.DefaultUom.RecName()
		changes[entity.FieldUnitDigits] = d.DefaultUom.Digits
	}

	if d.Product.ListPrice.Valid {
		changes[entity.FieldUnitPrice] = d.Product.ListPrice.Decimal.RoundBank(entity.UnitPriceDigits)
	}

	if d.Expense.Name == "" {
		changes[entity.FieldName] = d.Product.RecName(d.Party.Language(d.DefaultLanguage))
	}

	return changes
}

// OnChangeWithUnitDigits returns the quantity precision for unit.
func OnChangeWithUnitDigits(unit *entity.Uom) int {
	if unit != nil {
		return unit.Digits
	}
	return entity.DefaultUnitDigits
}

// OnChangeWithProductUomCategory returns the unit category of the product,
// or nil when no product is selected.
func OnChangeWithProductUomCategory(product *entity.Product, defaultUom *entity.Uom) *int64 {
	if product == nil || defaultUom == nil {
		return nil
	}
	id := defaultUom.CategoryID
	return &id
}

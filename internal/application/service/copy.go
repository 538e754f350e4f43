package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
	"github.com/NaN-tic/trytond-project-expenses/internal/domain/expense"
)

// applyDefaults overrides fields of e from a copy default map.
// Values may come from Go callers or from decoded JSON (numbers as float64).
func applyDefaults(e *entity.Expense, defaults map[string]interface{}) error {
	for field, value := range defaults {
		switch field {
		case entity.FieldName:
			name, ok := value.(string)
			if !ok {
				return fmt.Errorf("%w: copy default %q must be a string", expense.ErrInvalid, field)
			}
			e.Name = name

		case entity.FieldQuantity:
			q, ok := toFloat(value)
			if !ok {
				return fmt.Errorf("%w: copy default %q must be a number", expense.ErrInvalid, field)
			}
			e.Quantity = q

		case entity.FieldUnitPrice:
			price, err := toNullDecimal(value)
			if err != nil {
				return fmt.Errorf("%w: copy default %q: %v", expense.ErrInvalid, field, err)
			}
			e.UnitPrice = price

		case entity.FieldWork:
			id, err := toOptionalID(value)
			if err != nil {
				return fmt.Errorf("%w: copy default %q: %v", expense.ErrInvalid, field, err)
			}
			e.WorkID = id

		case entity.FieldInvoiceLine:
			id, err := toOptionalID(value)
			if err != nil {
				return fmt.Errorf("%w: copy default %q: %v", expense.ErrInvalid, field, err)
			}
			e.InvoiceLineID = id

		default:
			return fmt.Errorf("%w: unsupported copy default %q", expense.ErrInvalid, field)
		}
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func toOptionalID(v interface{}) (*int64, error) {
	if v == nil {
		return nil, nil
	}
	var id int64
	switch n := v.(type) {
	case int64:
		id = n
	case int:
		id = int64(n)
	case float64:
		if n != float64(int64(n)) {
			return nil, fmt.Errorf("id %v is not an integer", n)
		}
		id = int64(n)
	case *int64:
		if n == nil {
			return nil, nil
		}
		id = *n
	default:
		return nil, fmt.Errorf("unsupported id type %T", v)
	}
	return &id, nil
}

func toNullDecimal(v interface{}) (decimal.NullDecimal, error) {
	switch n := v.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case decimal.Decimal:
		return decimal.NewNullDecimal(n), nil
	case decimal.NullDecimal:
		return n, nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		return decimal.NewNullDecimal(d), nil
	default:
		f, ok := toFloat(v)
		if !ok {
			return decimal.NullDecimal{}, fmt.Errorf("unsupported price type %T", v)
		}
		return decimal.NewNullDecimal(decimal.NewFromFloat(f)), nil
	}
}

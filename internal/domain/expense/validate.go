package expense

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/NaN-tic/trytond-project-expenses/internal/domain/entity"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks e against its field constraints. defaultUom is the
// default unit of the expense product and unit the chosen unit, if any.
func Validate(e *entity.Expense, defaultUom, unit *entity.Uom) error {
	if err := validate.Struct(e); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			return fmt.Errorf("%w: %s failed on %s", ErrInvalid, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("validate expense: %w", err)
	}

	if unit != nil && defaultUom != nil && unit.CategoryID != defaultUom.CategoryID {
		return fmt.Errorf("%w: unit %d is not in the product unit category", ErrInvalid, unit.ID)
	}

	digits := OnChangeWithUnitDigits(unit)
	q := decimal.NewFromFloat(e.Quantity)
	if !q.Equal(q.Round(int32(digits))) {
		return fmt.Errorf("%w: quantity has more than %d decimals", ErrInvalid, digits)
	}

	if e.UnitPrice.Valid {
		p := e.UnitPrice.Decimal
		if !p.Equal(p.Round(entity.UnitPriceDigits)) {
			return fmt.Errorf("%w: unit price has more than %d decimals", ErrInvalid, entity.UnitPriceDigits)
		}
	}

	return nil
}

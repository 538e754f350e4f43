package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Uom is a unit of measure.
type Uom struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Symbol     string  `json:"symbol"`
	CategoryID int64   `json:"category_id"`
	Digits     int     `json:"digits"`
	Rounding   float64 `json:"rounding"`
}

// RecName is the display name of the unit.
func (u *Uom) RecName() string {
	return u.Name
}

// UomCategory groups units that can be converted into each other.
type UomCategory struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductCategory carries accounting defaults shared by several products.
type ProductCategory struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	AccountRevenueID *int64 `json:"account_revenue_id,omitempty"`
	CustomerTaxes    []Tax  `json:"customer_taxes,omitempty"`
}

// Product is a sellable product.
type Product struct {
	ID               int64               `json:"id"`
	Code             string              `json:"code,omitempty"`
	Name             string              `json:"name"`
	Translations     map[string]string   `json:"translations,omitempty"`
	DefaultUomID     int64               `json:"default_uom_id"`
	ListPrice        decimal.NullDecimal `json:"list_price"`
	AccountRevenueID *int64              `json:"account_revenue_id,omitempty"`
	CustomerTaxes    []Tax               `json:"customer_taxes,omitempty"`
	AccountsCategory bool                `json:"accounts_category"`
	TaxesCategory    bool                `json:"taxes_category"`
	Category         *ProductCategory    `json:"category,omitempty"`
}

// RecName returns the display name of the product in the given language.
// The untranslated name is used when lang has no translation.
func (p *Product) RecName(lang string) string {
	name := p.Name
	if t, ok := p.Translations[lang]; ok && t != "" {
		name = t
	}
	if p.Code != "" {
		return "[" + p.Code + "] " + name
	}
	return name
}

// AccountRevenueUsed returns the revenue account to post sales of the product to.
func (p *Product) AccountRevenueUsed() (int64, error) {
	if p.AccountsCategory {
		if p.Category == nil || p.Category.AccountRevenueID == nil {
			return 0, fmt.Errorf("product %d: category has no revenue account", p.ID)
		}
		return *p.Category.AccountRevenueID, nil
	}
	if p.AccountRevenueID == nil {
		return 0, fmt.Errorf("product %d has no revenue account", p.ID)
	}
	return *p.AccountRevenueID, nil
}

// CustomerTaxesUsed returns the customer taxes of the product, in order.
func (p *Product) CustomerTaxesUsed() []Tax {
	if p.TaxesCategory {
		if p.Category == nil {
			return nil
		}
		return p.Category.CustomerTaxes
	}
	return p.CustomerTaxes
}

package entity

// Party is a customer.
type Party struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	LangCode        *string  `json:"lang_code,omitempty"`
	CustomerTaxRule *TaxRule `json:"customer_tax_rule,omitempty"`
}

// Language returns the party language, or fallback when none is set.
func (p *Party) Language(fallback string) string {
	if p == nil || p.LangCode == nil || *p.LangCode == "" {
		return fallback
	}
	return *p.LangCode
}

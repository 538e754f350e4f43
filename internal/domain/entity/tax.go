package entity

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Tax is an accounting tax.
type Tax struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	GroupID *int64          `json:"group_id,omitempty"`
	Rate    decimal.Decimal `json:"rate"`
}

// TaxRulePattern holds the criteria a tax rule line is matched against.
// A nil criterion means "none" and only matches lines without that criterion.
type TaxRulePattern struct {
	GroupID     *int64
	OriginTaxID *int64
}

// TaxRule substitutes taxes for a party.
type TaxRule struct {
	ID    int64         `json:"id"`
	Name  string        `json:"name"`
	Lines []TaxRuleLine `json:"lines"`
}

// TaxRuleLine maps taxes matching its criteria to Tax.
// A nil TaxID makes the matched tax disappear.
type TaxRuleLine struct {
	ID          int64  `json:"id"`
	Sequence    int    `json:"sequence"`
	GroupID     *int64 `json:"group_id,omitempty"`
	OriginTaxID *int64 `json:"origin_tax_id,omitempty"`
	TaxID       *int64 `json:"tax_id,omitempty"`
}

// Match reports whether the line applies to pattern.
// Unset line criteria act as wildcards, except that a line without a group
// never matches a pattern that carries one.
func (l *TaxRuleLine) Match(pattern TaxRulePattern) bool {
	if l.GroupID == nil && pattern.GroupID != nil {
		return false
	}
	if l.GroupID != nil && !sameID(l.GroupID, pattern.GroupID) {
		return false
	}
	if l.OriginTaxID != nil && !sameID(l.OriginTaxID, pattern.OriginTaxID) {
		return false
	}
	return true
}

// Taxes returns the tax ids the line substitutes.
func (l *TaxRuleLine) Taxes() []int64 {
	if l.TaxID == nil {
		return nil
	}
	return []int64{*l.TaxID}
}

// Apply returns the tax ids to use in place of tax.
//
// tax may be nil to look for taxes the rule adds on its own. The first
// matching line, in sequence order, decides the result. Without a match the
// tax is kept unchanged, and a nil tax yields nothing.
func (r *TaxRule) Apply(tax *Tax, pattern TaxRulePattern) []int64 {
	pattern.GroupID = nil
	pattern.OriginTaxID = nil
	if tax != nil {
		pattern.GroupID = tax.GroupID
		id := tax.ID
		pattern.OriginTaxID = &id
	}

	for _, line := range r.orderedLines() {
		if line.Match(pattern) {
			return line.Taxes()
		}
	}

	if tax != nil {
		return []int64{tax.ID}
	}
	return nil
}

func (r *TaxRule) orderedLines() []TaxRuleLine {
	lines := make([]TaxRuleLine, len(r.Lines))
	copy(lines, r.Lines)
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Sequence != lines[j].Sequence {
			return lines[i].Sequence < lines[j].Sequence
		}
		return lines[i].ID < lines[j].ID
	})
	return lines
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

package entity

import "time"

// Work is a node of the project tree: either a project or a task.
type Work struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	Sequence  int       `json:"sequence"`
	CompanyID int64     `json:"company_id"`
	PartyID   *int64    `json:"party_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GroupInvoiceKey identifies works that can share an invoicing pass.
// Two works with equal keys bill the same company to the same customer.
type GroupInvoiceKey struct {
	CompanyID int64
	PartyID   int64
}

// GroupInvoiceKey returns the grouping test value of the work.
func (w *Work) GroupInvoiceKey() GroupInvoiceKey {
	key := GroupInvoiceKey{CompanyID: w.CompanyID}
	if w.PartyID != nil {
		key.PartyID = *w.PartyID
	}
	return key
}

// IsProject reports whether the work is a (sub-)project rather than a plain task.
func (w *Work) IsProject() bool {
	return w.Type == WorkTypeProject
}

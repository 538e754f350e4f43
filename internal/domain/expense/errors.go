package expense

import "errors"

var (
	// ErrInvalid is returned when an expense breaks a field constraint
	ErrInvalid = errors.New("invalid expense")

	// ErrNoParty is returned when the expense work has no customer to invoice
	ErrNoParty = errors.New("expense work has no party")
)

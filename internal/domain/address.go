package domain

import (
	"time"

	"github.com/google/uuid"
)

// Address is a shipping address in a shopper's address book. At most one
// address per shopper carries IsDefault; when none does, the earliest
// created address is treated as default for checkout selection.
type Address struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	FullName   string    `json:"full_name" db:"full_name"`
	Mobile     string    `json:"mobile" db:"mobile"`
	Street     string    `json:"street" db:"street"`
	City       string    `json:"city" db:"city"`
	State      string    `json:"state" db:"state"`
	PostalCode string    `json:"postal_code" db:"postal_code"`
	IsDefault  bool      `json:"is_default" db:"is_default"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// DefaultAddress picks the address checkout should preselect: the flagged
// default if present, otherwise the first in the (creation-ordered) list.
// Returns nil for an empty book.
func DefaultAddress(addresses []*Address) *Address {
	for _, a := range addresses {
		if a.IsDefault {
			return a
		}
	}
	if len(addresses) > 0 {
		return addresses[0]
	}
	return nil
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// WishlistItem is a saved product reference. Membership is a set: a product
// is either wishlisted or not, with no quantity.
type WishlistItem struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ToggleResult reports which way a wishlist toggle went.
type ToggleResult string

const (
	ToggleAdded   ToggleResult = "added"
	ToggleRemoved ToggleResult = "removed"
)

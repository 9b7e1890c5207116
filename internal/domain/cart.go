package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one (product, quantity) line in a shopper's cart.
// Quantity is always at least 1; a line that would reach 0 is deleted instead.
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartLine is a cart item joined with its product for presentation.
// Product is nil when the catalog entry has since been deleted; such lines
// render as unavailable and contribute nothing to the total.
type CartLine struct {
	Item    CartItem `json:"item"`
	Product *Product `json:"product,omitempty"`
}

// Subtotal is quantity times the product's current price, or 0 for a
// dangling product reference.
func (l *CartLine) Subtotal() int64 {
	if l.Product == nil {
		return 0
	}
	return int64(l.Item.Quantity) * l.Product.Price
}

// Cart is the assembled view of a shopper's cart. Total is recomputed from
// the lines on every read, never cached.
type Cart struct {
	Lines []CartLine `json:"lines"`
	Total int64      `json:"total"`
}

// NewCart assembles a cart view and computes its total.
func NewCart(lines []CartLine) Cart {
	var total int64
	for i := range lines {
		total += lines[i].Subtotal()
	}
	return Cart{Lines: lines, Total: total}
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProductStatus is the catalog lifecycle state of a product.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product represents a toy vehicle in the catalog. Price is in integer
// currency units; stock is the authoritative on-hand quantity.
type Product struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Description string        `json:"description" db:"description"`
	Price       int64         `json:"price" db:"price"`
	Category    string        `json:"category" db:"category"`
	ImageURL    string        `json:"image_url" db:"image_url"`
	Stock       int           `json:"stock" db:"stock"`
	Status      ProductStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// Available reports whether the product can currently be sold.
func (p *Product) Available() bool {
	return p.Status == ProductStatusActive && p.Stock > 0
}

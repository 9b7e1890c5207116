package domain

import (
	"time"

	"github.com/google/uuid"
)

// FulfillmentStatus is the admin-owned fulfillment axis of an order.
// processing -> shipped -> delivered is the nominal path, but any status may
// be written from any status: last write wins, so admins can correct mistakes.
type FulfillmentStatus string

const (
	FulfillmentProcessing FulfillmentStatus = "processing"
	FulfillmentShipped    FulfillmentStatus = "shipped"
	FulfillmentDelivered  FulfillmentStatus = "delivered"
)

// Valid reports whether s is one of the three known fulfillment statuses.
func (s FulfillmentStatus) Valid() bool {
	switch s {
	case FulfillmentProcessing, FulfillmentShipped, FulfillmentDelivered:
		return true
	}
	return false
}

// PaymentStatus is the payment-authority-owned axis of an order. It is only
// ever read through from the provider; fulfillment writes never touch it.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

// OrderItem is a line frozen at purchase time. Price is the unit price at
// the moment the order was created, stable against later catalog changes.
type OrderItem struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrderID     uuid.UUID `json:"order_id" db:"order_id"`
	ProductID   uuid.UUID `json:"product_id" db:"product_id"`
	ProductName string    `json:"product_name" db:"product_name"`
	Price       int64     `json:"price" db:"price"`
	Quantity    int       `json:"quantity" db:"quantity"`
}

// Order is a placed order with its frozen items and shipping address.
type Order struct {
	ID                uuid.UUID         `json:"id" db:"id"`
	UserID            uuid.UUID         `json:"user_id" db:"user_id"`
	Items             []OrderItem       `json:"items"`
	Total             int64             `json:"total" db:"total"`
	ShippingName      string            `json:"shipping_name" db:"shipping_name"`
	ShippingMobile    string            `json:"shipping_mobile" db:"shipping_mobile"`
	ShippingAddress   string            `json:"shipping_address" db:"shipping_address"`
	PaymentStatus     PaymentStatus     `json:"payment_status" db:"payment_status"`
	FulfillmentStatus FulfillmentStatus `json:"fulfillment_status" db:"fulfillment_status"`
	PaymentSessionRef string            `json:"-" db:"payment_session_ref"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

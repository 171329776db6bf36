// Package order implements the order intake workflow: it revalidates a
// proposed cart against authoritative catalog records, computes totals
// server-side, and persists the order.
package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Order is a persisted customer order.
type Order struct {
	ID                string
	OrderNumber       string
	UserID            string
	TotalAmount       decimal.Decimal
	ShippingAddressID string
	PaymentMethod     string
	PaymentStatus     string
	Status            string
	TrackingNumber    string
	Notes             string
	Items             []Item
	CreatedAt         time.Time
}

// Item is a single order line. Product name and image are denormalized at
// order time so later catalog edits do not rewrite order history.
type Item struct {
	ID          string
	ProductName string
	// ProductImage is the product's primary image URL at order time, or ""
	// when the product had no primary image.
	ProductImage string
	VariantColor string
	VariantSize  string
	Quantity     int
	UnitPrice    decimal.Decimal
	TotalPrice   decimal.Decimal

	// VariantID drives the stock decrement during persistence. It is not
	// stored on the order_items row.
	VariantID string
}

// Address is the shipping address snapshot joined into order detail reads.
type Address struct {
	FullName     string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
}

// Repository defines persistence operations for orders.
//
// Create must insert the order row, all item rows, and apply a conditional
// stock decrement (stock_quantity >= quantity) per item in a single atomic
// transaction. A decrement that matches no row means a concurrent order won
// the remaining stock; the implementation must roll back everything and
// return an InsufficientStockError.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	// GetByID returns the caller's order with its items and shipping address.
	// Orders of other users are not visible.
	GetByID(ctx context.Context, userID, orderID string) (*Order, *Address, error)
	// ListByUser returns the caller's orders, newest first, without items.
	ListByUser(ctx context.Context, userID string) ([]Order, error)
}

// NumberGenerator produces globally unique, human-readable order numbers.
// Implementations must be safe under concurrent callers.
type NumberGenerator interface {
	Next(ctx context.Context) (string, error)
}

// Package address defines the customer shipping address read model.
package address

import (
	"context"
	"time"
)

// Address is a customer shipping address.
type Address struct {
	ID           string
	UserID       string
	FullName     string
	Phone        string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	PostalCode   string
	Country      string
	Default      bool
	CreatedAt    time.Time
}

// Repository defines read operations for addresses. Listings are always
// scoped to a single user; one user's addresses are never visible to another.
type Repository interface {
	// ListByUser returns the user's addresses, default address first, then
	// newest first.
	ListByUser(ctx context.Context, userID string) ([]Address, error)
}

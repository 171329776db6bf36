// Package store defines the physical store locator read model.
package store

import "context"

// Store is a physical retail location shown on the store locator.
type Store struct {
	ID           string
	Name         string
	AddressLine1 string
	City         string
	State        string
	PostalCode   string
	Country      string
	Phone        string
	Email        string
	// OpeningHours is a free-form day-to-hours mapping rendered by clients.
	OpeningHours map[string]string
	Latitude     float64
	Longitude    float64
}

// Repository defines read operations for stores.
type Repository interface {
	// ListActive returns active stores ordered by name.
	ListActive(ctx context.Context) ([]Store, error)
}

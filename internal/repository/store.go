package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadline/storefront-api/internal/domain/store"
)

const listActiveStoresSQL = `SELECT id, name, address_line_1, city, state,
		postal_code, country, phone, COALESCE(email, ''), opening_hours,
		latitude, longitude
	FROM stores WHERE is_active = TRUE ORDER BY name`

var _ store.Repository = (*StoreRepository)(nil)

// StoreRepository implements store.Repository backed by PostgreSQL.
type StoreRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a StoreRepository that uses the given pool.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

// ListActive returns active stores ordered by name. Opening hours come from a
// JSONB column and scan directly into the map.
func (r *StoreRepository) ListActive(ctx context.Context) ([]store.Store, error) {
	rows, err := r.pool.Query(ctx, listActiveStoresSQL)
	if err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}
	stores, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Store, error) {
		var s store.Store
		err := row.Scan(
			&s.ID, &s.Name, &s.AddressLine1, &s.City, &s.State,
			&s.PostalCode, &s.Country, &s.Phone, &s.Email, &s.OpeningHours,
			&s.Latitude, &s.Longitude,
		)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}
	return stores, nil
}

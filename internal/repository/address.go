package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadline/storefront-api/internal/domain/address"
)

const listAddressesSQL = `SELECT id, user_id, full_name, phone, address_line_1,
		address_line_2, city, state, postal_code, country, is_default, created_at
	FROM addresses WHERE user_id = $1
	ORDER BY is_default DESC, created_at DESC`

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// ListByUser returns the user's addresses, default first, then newest first.
func (r *AddressRepository) ListByUser(ctx context.Context, userID string) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses for user %q: %w", userID, err)
	}
	addrs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (address.Address, error) {
		var a address.Address
		err := row.Scan(
			&a.ID, &a.UserID, &a.FullName, &a.Phone, &a.AddressLine1,
			&a.AddressLine2, &a.City, &a.State, &a.PostalCode, &a.Country,
			&a.Default, &a.CreatedAt,
		)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("listing addresses for user %q: %w", userID, err)
	}
	return addrs, nil
}

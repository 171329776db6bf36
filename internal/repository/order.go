package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadline/storefront-api/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
			id, order_number, user_id, total_amount, shipping_address_id,
			payment_method, payment_status, status, notes
		) VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6, $7, $8, $9)`

	insertOrderItemSQL = `INSERT INTO order_items (
			id, order_id, product_name, product_image, variant_color,
			variant_size, quantity, unit_price, total_price
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	// Conditional decrement: matches zero rows when the remaining stock is
	// below the requested quantity, so a concurrent order can never push
	// stock negative.
	decrementStockSQL = `UPDATE product_variants
		SET stock_quantity = stock_quantity - $2
		WHERE id = $1 AND stock_quantity >= $2`

	getOrderSQL = `SELECT id, order_number, user_id, total_amount,
			COALESCE(shipping_address_id::text, ''), payment_method, payment_status,
			status, COALESCE(tracking_number, ''), COALESCE(notes, ''), created_at
		FROM orders WHERE id = $1 AND user_id = $2`

	listOrdersSQL = `SELECT id, order_number, user_id, total_amount,
			COALESCE(shipping_address_id::text, ''), payment_method, payment_status,
			status, COALESCE(tracking_number, ''), COALESCE(notes, ''), created_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	listOrderItemsSQL = `SELECT id, product_name, product_image, variant_color,
			variant_size, quantity, unit_price, total_price
		FROM order_items WHERE order_id = $1 ORDER BY created_at, id`

	getOrderAddressSQL = `SELECT full_name, phone, address_line_1, address_line_2,
			city, state, postal_code, country
		FROM addresses WHERE id = $1`

	nextOrderNumberSQL = `SELECT 'ORD-' || to_char(now(), 'YYYYMMDD') || '-' ||
		lpad(nextval('order_number_seq')::text, 6, '0')`
)

// ErrOrderNotFound is returned when an order does not exist or belongs to a
// different user.
var ErrOrderNotFound = errors.New("order not found")

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Writes run
// on the privileged pool; reads are always scoped by user id, which stands in
// for the row-level access restriction of the hosted backend.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts the order, its items, and the per-item stock decrements in a
// single transaction. If any item's conditional decrement matches no row, the
// whole transaction rolls back and an InsufficientStockError is returned: no
// order is visible without its items and stock never goes negative.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.OrderNumber, o.UserID, o.TotalAmount, o.ShippingAddressID,
		o.PaymentMethod, o.PaymentStatus, o.Status, o.Notes,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		tag, err := tx.Exec(ctx, decrementStockSQL, item.VariantID, item.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for variant %q: %w", item.VariantID, err)
		}
		if tag.RowsAffected() == 0 {
			return &order.InsufficientStockError{VariantID: item.VariantID}
		}

		_, err = tx.Exec(ctx, insertOrderItemSQL,
			item.ID, o.ID, item.ProductName, item.ProductImage,
			item.VariantColor, item.VariantSize,
			item.Quantity, item.UnitPrice, item.TotalPrice,
		)
		if err != nil {
			return fmt.Errorf("inserting order item for %q: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns the caller's order with items and shipping address. Orders
// of other users report ErrOrderNotFound, not a permission error.
func (r *OrderRepository) GetByID(ctx context.Context, userID, orderID string) (*order.Order, *order.Address, error) {
	// orderID is client-supplied; a malformed uuid cannot match any row.
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, nil, ErrOrderNotFound
	}

	rows, err := r.pool.Query(ctx, getOrderSQL, orderID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, fmt.Errorf("getting order %q: %w", orderID, err)
	}

	rows, err = r.pool.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing items for order %q: %w", orderID, err)
	}
	o.Items, err = pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, nil, fmt.Errorf("listing items for order %q: %w", orderID, err)
	}

	var addr *order.Address
	if o.ShippingAddressID != "" {
		var a order.Address
		err := r.pool.QueryRow(ctx, getOrderAddressSQL, o.ShippingAddressID).Scan(
			&a.FullName, &a.Phone, &a.AddressLine1, &a.AddressLine2,
			&a.City, &a.State, &a.PostalCode, &a.Country,
		)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			// Address deleted since the order was placed; detail still loads.
		case err != nil:
			return nil, nil, fmt.Errorf("getting address for order %q: %w", orderID, err)
		default:
			addr = &a
		}
	}

	return &o, addr, nil
}

// ListByUser returns the caller's orders, newest first, without items.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return orders, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.TotalAmount, &o.ShippingAddressID,
		&o.PaymentMethod, &o.PaymentStatus, &o.Status, &o.TrackingNumber,
		&o.Notes, &o.CreatedAt,
	)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.ID, &it.ProductName, &it.ProductImage, &it.VariantColor,
		&it.VariantSize, &it.Quantity, &it.UnitPrice, &it.TotalPrice,
	)
	return it, err
}

var _ order.NumberGenerator = (*OrderNumberGenerator)(nil)

// OrderNumberGenerator produces order numbers from a database sequence, so
// numbers stay unique under concurrent callers without any in-process
// coordination.
type OrderNumberGenerator struct {
	pool *pgxpool.Pool
}

// NewOrderNumberGenerator returns a sequence-backed number generator.
func NewOrderNumberGenerator(pool *pgxpool.Pool) *OrderNumberGenerator {
	return &OrderNumberGenerator{pool: pool}
}

// Next returns a fresh order number, e.g. "ORD-20250114-000042".
func (g *OrderNumberGenerator) Next(ctx context.Context) (string, error) {
	var number string
	if err := g.pool.QueryRow(ctx, nextOrderNumberSQL).Scan(&number); err != nil {
		return "", fmt.Errorf("generating order number: %w", err)
	}
	return number, nil
}

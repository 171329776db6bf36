package order

import "fmt"

// ErrNoItems is returned when the proposed cart is empty.
var ErrNoItems = fmt.Errorf("no items in order")

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	VariantID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for variant %s", e.VariantID)
}

// VariantNotFoundError indicates a requested variant is unknown or inactive.
type VariantNotFoundError struct {
	VariantID string
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("invalid product variant: %s", e.VariantID)
}

// InsufficientStockError indicates the requested quantity exceeds the stock
// available for a variant. It is returned both by the upfront stock check and
// by the transactional decrement when a concurrent order drains the stock
// between check and commit.
type InsufficientStockError struct {
	VariantID string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %s", e.VariantID)
}

// ProductNotFoundError indicates a variant references a missing product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("invalid product: %s", e.ProductID)
}

// Package catalog defines the product catalog read model: products, their
// purchasable variants, and display images.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for catalog lookups.
var (
	ErrProductNotFound = errors.New("product not found")
	ErrVariantNotFound = errors.New("variant not found")
)

// Product represents a catalog item. A product is not purchasable directly;
// customers order one of its variants.
type Product struct {
	ID          string
	Title       string
	Description string
	Category    string
	Active      bool
	Variants    []Variant
	Images      []Image
}

// Variant is a specific purchasable configuration of a product (a color/size
// combination) with its own SKU, price, and stock count.
type Variant struct {
	ID            string
	ProductID     string
	SKU           string
	Color         string
	Size          string
	Price         decimal.Decimal
	StockQuantity int
	Active        bool
}

// Image holds one display image of a product. At most one image per product
// is flagged primary.
type Image struct {
	URL     string
	Primary bool
}

// Repository defines read operations for the product catalog plus the single
// write used by order intake: the conditional stock decrement.
type Repository interface {
	// List returns all active products with their variants and images.
	List(ctx context.Context) ([]Product, error)
	// GetByID returns a single product with variants and images.
	GetByID(ctx context.Context, id string) (*Product, error)
	// GetActiveVariant returns a variant by id, requiring is_active = TRUE.
	// Inactive and unknown variants are both ErrVariantNotFound.
	GetActiveVariant(ctx context.Context, id string) (*Variant, error)
	// GetProductTitle returns the title of the product owning a variant.
	GetProductTitle(ctx context.Context, productID string) (string, error)
	// GetPrimaryImageURL returns the URL of the product's primary image, or
	// "" when the product has no primary image. Absence is not an error.
	GetPrimaryImageURL(ctx context.Context, productID string) (string, error)
}

// PrimaryImage returns the URL of the product's primary image, or "" when no
// image is flagged primary.
func (p *Product) PrimaryImage() string {
	for _, img := range p.Images {
		if img.Primary {
			return img.URL
		}
	}
	return ""
}

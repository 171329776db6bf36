package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadline/storefront-api/internal/domain/catalog"
)

const (
	listProductsSQL = `SELECT id, title, description, category, is_active
		FROM products WHERE is_active = TRUE ORDER BY title`

	getProductByIDSQL = `SELECT id, title, description, category, is_active
		FROM products WHERE id = $1`

	getProductTitleSQL = `SELECT title FROM products WHERE id = $1`

	listVariantsByProductsSQL = `SELECT id, product_id, sku, color, size, price, stock_quantity, is_active
		FROM product_variants WHERE product_id = ANY($1) ORDER BY sku`

	getActiveVariantSQL = `SELECT id, product_id, sku, color, size, price, stock_quantity, is_active
		FROM product_variants WHERE id = $1 AND is_active = TRUE`

	listImagesByProductsSQL = `SELECT product_id, image_url, is_primary
		FROM product_images WHERE product_id = ANY($1) ORDER BY sort_order`

	getPrimaryImageSQL = `SELECT image_url FROM product_images
		WHERE product_id = $1 AND is_primary = TRUE LIMIT 1`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// List returns all active products with their variants and images.
func (r *CatalogRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	products, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	if len(products) == 0 {
		return products, nil
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	if err := r.attachDetails(ctx, products, ids); err != nil {
		return nil, err
	}
	return products, nil
}

// GetByID returns a single product with its variants and images.
func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	// ids are client-supplied; a malformed uuid cannot match any row.
	if _, err := uuid.Parse(id); err != nil {
		return nil, catalog.ErrProductNotFound
	}

	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	products := []catalog.Product{p}
	if err := r.attachDetails(ctx, products, []string{id}); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// GetActiveVariant returns a variant by id, requiring is_active = TRUE.
func (r *CatalogRepository) GetActiveVariant(ctx context.Context, id string) (*catalog.Variant, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, catalog.ErrVariantNotFound
	}

	rows, err := r.pool.Query(ctx, getActiveVariantSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}

	v, err := pgx.CollectExactlyOneRow(rows, scanVariant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, fmt.Errorf("getting variant %q: %w", id, err)
	}
	return &v, nil
}

// GetProductTitle returns the title of a product.
func (r *CatalogRepository) GetProductTitle(ctx context.Context, productID string) (string, error) {
	var title string
	err := r.pool.QueryRow(ctx, getProductTitleSQL, productID).Scan(&title)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", catalog.ErrProductNotFound
		}
		return "", fmt.Errorf("getting product title %q: %w", productID, err)
	}
	return title, nil
}

// GetPrimaryImageURL returns the product's primary image URL, or "" when the
// product has no primary image.
func (r *CatalogRepository) GetPrimaryImageURL(ctx context.Context, productID string) (string, error) {
	var url string
	err := r.pool.QueryRow(ctx, getPrimaryImageSQL, productID).Scan(&url)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("getting primary image for product %q: %w", productID, err)
	}
	return url, nil
}

// attachDetails loads variants and images for the given products in two
// batched queries and distributes them onto the product slice.
func (r *CatalogRepository) attachDetails(ctx context.Context, products []catalog.Product, ids []string) error {
	byID := make(map[string]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	rows, err := r.pool.Query(ctx, listVariantsByProductsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing variants: %w", err)
	}
	variants, err := pgx.CollectRows(rows, scanVariant)
	if err != nil {
		return fmt.Errorf("listing variants: %w", err)
	}
	for _, v := range variants {
		if p, ok := byID[v.ProductID]; ok {
			p.Variants = append(p.Variants, v)
		}
	}

	rows, err = r.pool.Query(ctx, listImagesByProductsSQL, ids)
	if err != nil {
		return fmt.Errorf("listing images: %w", err)
	}
	type imageRow struct {
		productID string
		image     catalog.Image
	}
	images, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (imageRow, error) {
		var ir imageRow
		err := row.Scan(&ir.productID, &ir.image.URL, &ir.image.Primary)
		return ir, err
	})
	if err != nil {
		return fmt.Errorf("listing images: %w", err)
	}
	for _, ir := range images {
		if p, ok := byID[ir.productID]; ok {
			p.Images = append(p.Images, ir.image)
		}
	}

	return nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var p catalog.Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Category, &p.Active)
	return p, err
}

func scanVariant(row pgx.CollectableRow) (catalog.Variant, error) {
	var v catalog.Variant
	err := row.Scan(
		&v.ID, &v.ProductID, &v.SKU, &v.Color, &v.Size,
		&v.Price, &v.StockQuantity, &v.Active,
	)
	return v, err
}

// Command seed-db loads catalog and store fixtures into the database and
// provisions a demo user with a bearer session, so a fresh environment can
// serve requests immediately.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/threadline/storefront-api/internal/domain/auth"
	"github.com/threadline/storefront-api/internal/repository"
)

type catalogJSON struct {
	Products []productJSON `json:"products"`
}

type productJSON struct {
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Images      []imageJSON   `json:"images"`
	Variants    []variantJSON `json:"variants"`
}

type imageJSON struct {
	URL     string `json:"url"`
	Primary bool   `json:"primary"`
}

type variantJSON struct {
	SKU   string          `json:"sku"`
	Color string          `json:"color"`
	Size  string          `json:"size"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type storesJSON struct {
	Stores []storeJSON `json:"stores"`
}

type storeJSON struct {
	Name         string            `json:"name"`
	AddressLine1 string            `json:"addressLine1"`
	City         string            `json:"city"`
	State        string            `json:"state"`
	PostalCode   string            `json:"postalCode"`
	Country      string            `json:"country"`
	Phone        string            `json:"phone"`
	Email        string            `json:"email"`
	OpeningHours map[string]string `json:"openingHours"`
	Latitude     float64           `json:"latitude"`
	Longitude    float64           `json:"longitude"`
}

func main() {
	var (
		databaseURL string
		catalogFile string
		storesFile  string
		token       string
		tokenPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON file")
	flag.StringVar(&storesFile, "stores-file", "db/seed/stores.json", "path to stores JSON file")
	flag.StringVar(&token, "token", "", "bearer token to seed (or STOREFRONT_SEED_TOKEN env)")
	flag.StringVar(&tokenPepper, "token-pepper", "", "HMAC pepper for token hashing (or STOREFRONT_TOKEN_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if token == "" {
		token = os.Getenv("STOREFRONT_SEED_TOKEN")
	}
	if token == "" {
		slog.Error("bearer token is required: set --token or STOREFRONT_SEED_TOKEN")
		os.Exit(1)
	}
	if tokenPepper == "" {
		tokenPepper = os.Getenv("STOREFRONT_TOKEN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, storesFile, token, tokenPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, storesFile, token, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool, catalogFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedStores(ctx, pool, storesFile); err != nil {
		return errors.Wrap(err, "seed stores")
	}
	if err := seedSession(ctx, pool, token, pepper); err != nil {
		return errors.Wrap(err, "seed session")
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	for _, p := range catalog.Products {
		productID := uuid.New().String()
		_, err := pool.Exec(ctx,
			`INSERT INTO products (id, title, description, category) VALUES ($1, $2, $3, $4)`,
			productID, p.Title, p.Description, p.Category,
		)
		if err != nil {
			return errors.Wrapf(err, "insert product %q", p.Title)
		}

		for i, img := range p.Images {
			_, err := pool.Exec(ctx,
				`INSERT INTO product_images (id, product_id, image_url, is_primary, sort_order)
				 VALUES ($1, $2, $3, $4, $5)`,
				uuid.New().String(), productID, img.URL, img.Primary, i,
			)
			if err != nil {
				return errors.Wrapf(err, "insert image for %q", p.Title)
			}
		}

		for _, v := range p.Variants {
			_, err := pool.Exec(ctx,
				`INSERT INTO product_variants (id, product_id, sku, color, size, price, stock_quantity)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 ON CONFLICT (sku) DO UPDATE
				 SET price = EXCLUDED.price, stock_quantity = EXCLUDED.stock_quantity`,
				uuid.New().String(), productID, v.SKU, v.Color, v.Size, v.Price, v.Stock,
			)
			if err != nil {
				return errors.Wrapf(err, "insert variant %q", v.SKU)
			}
		}
	}

	slog.Info("catalog seeded", slog.Int("products", len(catalog.Products)))
	return nil
}

func seedStores(ctx context.Context, pool *pgxpool.Pool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read %s", path)
	}

	var stores storesJSON
	if err := json.Unmarshal(data, &stores); err != nil {
		return errors.Wrap(err, "parse stores JSON")
	}

	for _, s := range stores.Stores {
		hours, err := json.Marshal(s.OpeningHours)
		if err != nil {
			return errors.Wrapf(err, "marshal opening hours for %q", s.Name)
		}
		_, err = pool.Exec(ctx,
			`INSERT INTO stores (id, name, address_line_1, city, state, postal_code,
				country, phone, email, opening_hours, latitude, longitude)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12)`,
			uuid.New().String(), s.Name, s.AddressLine1, s.City, s.State, s.PostalCode,
			s.Country, s.Phone, s.Email, hours, s.Latitude, s.Longitude,
		)
		if err != nil {
			return errors.Wrapf(err, "insert store %q", s.Name)
		}
	}

	slog.Info("stores seeded", slog.Int("stores", len(stores.Stores)))
	return nil
}

// seedSession creates the demo user and a year-long bearer session whose hash
// matches what the API's token verifier computes.
func seedSession(ctx context.Context, pool *pgxpool.Pool, token, pepper string) error {
	userID := uuid.New().String()
	_, err := pool.Exec(ctx,
		`INSERT INTO users (id, email, full_name) VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO NOTHING`,
		userID, "demo@threadline.example", "Demo Customer",
	)
	if err != nil {
		return errors.Wrap(err, "insert user")
	}

	// The insert above may have been a no-op; resolve the actual id.
	if err := pool.QueryRow(ctx,
		`SELECT id FROM users WHERE email = $1`, "demo@threadline.example",
	).Scan(&userID); err != nil {
		return errors.Wrap(err, "resolve user id")
	}

	_, err = pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, token_hash, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (token_hash) DO NOTHING`,
		uuid.New().String(), userID, auth.HashToken([]byte(pepper), token),
		time.Now().AddDate(1, 0, 0),
	)
	if err != nil {
		return errors.Wrap(err, "insert session")
	}

	slog.Info("session seeded", slog.String("user_id", userID))
	return nil
}

// Command catalog-ingest refreshes variant prices and stock levels from
// gzipped JSONL supplier feeds. An optional discontinued-SKU list (gzipped,
// one SKU per line, typically very large) deactivates matching variants.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/threadline/storefront-api/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 1_000_000
	batchSize     = 500
)

// feedRecord is one line of a supplier feed.
type feedRecord struct {
	SKU    string          `json:"sku"`
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stock"`
	Active bool            `json:"active"`
}

const updateVariantSQL = `
UPDATE product_variants
SET price = $2, stock_quantity = $3, is_active = $4, updated_at = now()
WHERE sku = $1`

func main() {
	var (
		feedDir          string
		discontinuedFile string
		databaseURL      string
	)

	flag.StringVar(&feedDir, "feed-dir", "data", "directory containing *.jsonl.gz feed files")
	flag.StringVar(&discontinuedFile, "discontinued", "", "optional gzipped list of discontinued SKUs, one per line")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, feedDir, discontinuedFile, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, feedDir, discontinuedFile, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(feedDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", feedDir)
	}

	// Phase 1: build the discontinued filter, if a list was provided.
	// A bloom false positive deactivates a live variant until the next feed
	// run re-activates it.
	var discontinued *bloom.BloomFilter
	if discontinuedFile != "" {
		slog.Info("building discontinued filter", slog.String("file", discontinuedFile))
		discontinued, err = buildDiscontinuedFilter(ctx, discontinuedFile)
		if err != nil {
			return errors.Wrap(err, "build discontinued filter")
		}
	}

	// Phase 2: parse all feed files concurrently.
	slog.Info("parsing feed files", slog.Int("files", len(files)))

	results := make([][]feedRecord, len(files))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(parseFeedFile(gctx, i, f, results))
	}
	if err := g.Wait(); err != nil {
		return errors.Wrap(err, "parse feeds")
	}

	// Later files win when the same SKU appears more than once.
	merged := make(map[string]feedRecord)
	for _, records := range results {
		for _, r := range records {
			merged[r.SKU] = r
		}
	}

	slog.Info("feed records merged", slog.Int("variants", len(merged)))

	if len(merged) == 0 {
		slog.Info("no records to apply")
		return nil
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := applyFeed(ctx, pool, merged, discontinued); err != nil {
		return errors.Wrap(err, "apply feed to database")
	}

	return nil
}

// buildDiscontinuedFilter streams a gzipped SKU list into a bloom filter so
// the full list never has to fit in memory.
func buildDiscontinuedFilter(ctx context.Context, path string) (*bloom.BloomFilter, error) {
	filter := bloom.NewWithEstimates(bloomCapacity, bloomFPR)
	var count uint64

	if err := streamGzLines(ctx, path, func(line string) error {
		if line == "" {
			return nil
		}
		filter.AddString(line)
		count++
		if count%progressEvery == 0 {
			slog.Info("discontinued filter progress", slog.Uint64("skus", count))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	slog.Info("discontinued filter built", slog.Uint64("skus", count))
	return filter, nil
}

func parseFeedFile(ctx context.Context, idx int, path string, results [][]feedRecord) func() error {
	return func() error {
		var (
			records []feedRecord
			skipped uint64
			lineNo  uint64
		)

		if err := streamGzLines(ctx, path, func(line string) error {
			lineNo++
			if line == "" {
				return nil
			}

			var r feedRecord
			if err := json.Unmarshal([]byte(line), &r); err != nil {
				// Supplier feeds routinely contain a few garbage lines.
				skipped++
				return nil
			}
			if r.SKU == "" || r.Stock < 0 || r.Price.IsNegative() {
				skipped++
				return nil
			}

			records = append(records, r)
			if lineNo%progressEvery == 0 {
				slog.Info("feed progress",
					slog.Int("file", idx+1),
					slog.Uint64("lines", lineNo),
				)
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "parse %s", path)
		}

		slog.Info("feed file parsed",
			slog.Int("file", idx+1),
			slog.Int("records", len(records)),
			slog.Uint64("skipped", skipped),
		)

		results[idx] = records
		return nil
	}
}

// applyFeed writes merged feed records in batches. SKUs not present in the
// catalog are counted and reported, not treated as errors.
func applyFeed(ctx context.Context, pool *pgxpool.Pool, merged map[string]feedRecord, discontinued *bloom.BloomFilter) error {
	slog.Info("applying feed", slog.Int("variants", len(merged)))

	var (
		batch       pgx.Batch
		queued      []string
		applied     uint64
		unmatched   uint64
		deactivated uint64
	)

	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		br := pool.SendBatch(ctx, &batch)
		for _, sku := range queued {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return errors.Wrapf(err, "update variant %s", sku)
			}
			if tag.RowsAffected() == 0 {
				unmatched++
			} else {
				applied++
			}
		}
		if err := br.Close(); err != nil {
			return errors.Wrap(err, "close batch")
		}
		batch = pgx.Batch{}
		queued = queued[:0]
		return nil
	}

	for sku, r := range merged {
		active := r.Active
		if discontinued != nil && discontinued.TestString(sku) {
			active = false
			deactivated++
		}

		batch.Queue(updateVariantSQL, sku, r.Price, r.Stock, active)
		queued = append(queued, sku)

		if batch.Len() >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	slog.Info("feed applied",
		slog.Uint64("applied", applied),
		slog.Uint64("unmatched", unmatched),
		slog.Uint64("deactivated", deactivated),
	)
	return nil
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}

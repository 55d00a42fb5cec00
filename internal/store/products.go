package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/pet-products-scraper/internal/events"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

var productColumns = []string{
	"shop", "name", "description", "rating", "url", "variant",
	"price", "discounted_price", "discount_percentage", "image_urls",
}

func (s *Store) TruncateStagedProducts(ctx context.Context) error {
	return s.truncate(ctx, stagedProducts)
}

// CompleteURL appends the rows of one scraped URL to stg_pet_products and
// marks it DONE. Both writes and the outbox event share one transaction, so
// a crash never leaves rows without their status or the reverse.
func (s *Store) CompleteURL(ctx context.Context, u models.DiscoveredURL, rows []models.ProductRecord) (int64, error) {
	var loaded int64
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		n, err := tx.CopyFrom(ctx, pgx.Identifier{stagedProducts}, productColumns, pgx.CopyFromRows(productRows(rows)))
		if err != nil {
			return fmt.Errorf("failed to load products for %s: %w", u.URL, err)
		}
		loaded = n

		now := time.Now().UTC()
		if err := setStatus(ctx, tx, u.ID, models.StatusDone, now); err != nil {
			return err
		}
		return s.recordAttempt(ctx, tx, events.ScrapeAttempt{
			URLID:       u.ID,
			Shop:        u.Shop,
			URL:         u.URL,
			Status:      models.StatusDone,
			Rows:        int(n),
			AttemptedAt: now,
		})
	})
	if err != nil {
		return 0, err
	}

	s.metrics.AddRows(stagedProducts, int(loaded))
	s.logger.Info("products loaded", "shop", u.Shop, "url", u.URL, "table", stagedProducts, "rows", loaded)
	return loaded, nil
}

func productRows(rows []models.ProductRecord) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.Shop, r.Name, r.Description, r.Rating, r.URL, r.Variant,
			r.Price, r.DiscountedPrice, r.DiscountPercentage, r.JoinedImageURLs(),
		}
	}
	return out
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/maltedev/pet-products-scraper/internal/events"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

func (s *Store) TruncateStagedURLs(ctx context.Context) error {
	return s.truncate(ctx, stagedURLs)
}

// LoadStagedURLs appends discovered links to stg_urls.
func (s *Store) LoadStagedURLs(ctx context.Context, shop string, urls []string) (int64, error) {
	if len(urls) == 0 {
		return 0, nil
	}

	rows := make([][]any, len(urls))
	for i, u := range urls {
		rows[i] = []any{shop, u}
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{stagedURLs}, []string{"shop", "url"}, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to load urls for %s: %w", shop, err)
	}

	s.metrics.AddRows(stagedURLs, int(n))
	s.logger.Info("urls loaded", "shop", shop, "table", stagedURLs, "rows", n)
	return n, nil
}

// PendingURLs selects every URL of shop not yet DONE, FAILED ones included.
func (s *Store) PendingURLs(ctx context.Context, shop string) ([]models.DiscoveredURL, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, shop, url, scrape_status, status_updated_at
		FROM urls
		WHERE shop = $1 AND scrape_status IS DISTINCT FROM $2
		ORDER BY id`,
		shop, string(models.StatusDone))
	if err != nil {
		return nil, fmt.Errorf("failed to select pending urls: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DiscoveredURL, error) {
		var u models.DiscoveredURL
		var status string
		err := row.Scan(&u.ID, &u.Shop, &u.URL, &status, &u.StatusUpdatedAt)
		u.Status = models.ScrapeStatus(status)
		return u, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan pending urls: %w", err)
	}
	return out, nil
}

// FailURL marks u FAILED and records the attempt in the outbox.
func (s *Store) FailURL(ctx context.Context, u models.DiscoveredURL, cause error) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		now := time.Now().UTC()
		if err := setStatus(ctx, tx, u.ID, models.StatusFailed, now); err != nil {
			return err
		}
		msg := ""
		if cause != nil {
			msg = cause.Error()
		}
		return s.recordAttempt(ctx, tx, events.ScrapeAttempt{
			URLID:       u.ID,
			Shop:        u.Shop,
			URL:         u.URL,
			Status:      models.StatusFailed,
			Error:       msg,
			AttemptedAt: now,
		})
	})
}

// CountByStatus summarises the canonical URL table. An empty shop counts
// every shop.
func (s *Store) CountByStatus(ctx context.Context, shop string) ([]models.StatusCount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT shop, scrape_status, COUNT(*)
		FROM urls
		WHERE $1 = '' OR shop = $1
		GROUP BY shop, scrape_status
		ORDER BY shop, scrape_status`,
		shop)
	if err != nil {
		return nil, fmt.Errorf("failed to count urls: %w", err)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.StatusCount, error) {
		var c models.StatusCount
		var status string
		err := row.Scan(&c.Shop, &status, &c.Count)
		c.Status = models.ScrapeStatus(status)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan url counts: %w", err)
	}
	return out, nil
}

func setStatus(ctx context.Context, tx pgx.Tx, id int64, status models.ScrapeStatus, at time.Time) error {
	tag, err := tx.Exec(ctx,
		`UPDATE urls SET scrape_status = $1, status_updated_at = $2 WHERE id = $3`,
		string(status), at, id)
	if err != nil {
		return fmt.Errorf("failed to update status of url %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("url %d not found", id)
	}
	return nil
}

func (s *Store) recordAttempt(ctx context.Context, tx pgx.Tx, a events.ScrapeAttempt) error {
	event, err := events.NewScrapeAttemptEvent(a)
	if err != nil {
		return err
	}
	return s.outbox.InsertWithTx(ctx, tx, event)
}

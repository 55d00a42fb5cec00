package etl

import (
	"context"
	"fmt"

	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/models"
	"github.com/maltedev/pet-products-scraper/internal/ratelimit"
)

// BackfillImages runs the shop's image-only extractor over already scraped
// variant pages. Pages that fail are logged and left out of the result.
func (o *Orchestrator) BackfillImages(ctx context.Context, shop string, variants []models.VariantURL) ([]models.ImageRecord, error) {
	cfg, err := o.registry.Get(shop)
	if err != nil {
		return nil, err
	}
	if cfg.Images == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoImageExtractor, shop)
	}
	logger := o.logger.With("shop", shop)

	out := make([]models.ImageRecord, 0, len(variants))
	for i, v := range variants {
		if i > 0 && cfg.ImageDelayMax > 0 {
			if err := o.sleep(ctx, ratelimit.Jitter(cfg.ImageDelayMin, cfg.ImageDelayMax)); err != nil {
				return out, err
			}
		}

		u := extract.Resolve(cfg.Shop.BaseURL, v.URL)
		images, err := cfg.Images(ctx, o.fetcher, u)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			logger.Warn("image extraction failed", "id", v.ID, "url", u, "error", err)
			continue
		}

		out = append(out, models.ImageRecord{Shop: shop, URL: u, ImageURLs: images})
		logger.Debug("images extracted", "id", v.ID, "url", u, "count", len(images))
	}

	logger.Info("image backfill complete", "requested", len(variants), "extracted", len(out))
	return out, nil
}

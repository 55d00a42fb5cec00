// Package etl drives shops through link discovery and product scraping.
package etl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maltedev/pet-products-scraper/internal/discovery"
	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/fetch"
	"github.com/maltedev/pet-products-scraper/internal/metrics"
	"github.com/maltedev/pet-products-scraper/internal/models"
	"github.com/maltedev/pet-products-scraper/internal/ratelimit"
	"github.com/maltedev/pet-products-scraper/internal/shops"
	"github.com/maltedev/pet-products-scraper/internal/store"
)

const defaultMaxInRunPages = 100

var ErrNoImageExtractor = errors.New("shop has no image extractor")

// Store is the persistence the orchestrator drives. Errors from it abort the
// current operation.
type Store interface {
	TruncateStagedURLs(ctx context.Context) error
	LoadStagedURLs(ctx context.Context, shop string, urls []string) (int64, error)
	PendingURLs(ctx context.Context, shop string) ([]models.DiscoveredURL, error)
	TruncateStagedProducts(ctx context.Context) error
	CompleteURL(ctx context.Context, u models.DiscoveredURL, rows []models.ProductRecord) (int64, error)
	FailURL(ctx context.Context, u models.DiscoveredURL, cause error) error
	RunTransform(ctx context.Context, name string) error
}

type Options struct {
	Registry *shops.Registry
	Store    Store
	Fetcher  fetch.Fetcher

	// Allowed filters discovered links, typically a robots.txt policy.
	Allowed func(ctx context.Context, url string) bool

	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// MaxInRunPages bounds next-page following inside a single URL.
	MaxInRunPages int

	// Sleep paces the image backfill. Defaults to ratelimit.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// RunSummary reports one scrape run of a shop.
type RunSummary struct {
	Shop      string `json:"shop"`
	Attempted int    `json:"attempted"`
	Done      int    `json:"done"`
	Failed    int    `json:"failed"`
	Rows      int64  `json:"rows"`
}

// Orchestrator is the single ETL engine every shop configuration runs
// through. Work within a shop is strictly sequential.
type Orchestrator struct {
	registry      *shops.Registry
	store         Store
	fetcher       fetch.Fetcher
	allowed       func(ctx context.Context, url string) bool
	logger        *slog.Logger
	metrics       *metrics.Metrics
	maxInRunPages int
	sleep         func(ctx context.Context, d time.Duration) error

	mu     sync.Mutex
	states map[string]models.RunState
}

func New(opts Options) (*Orchestrator, error) {
	switch {
	case opts.Registry == nil:
		return nil, errors.New("registry is required")
	case opts.Store == nil:
		return nil, errors.New("store is required")
	case opts.Fetcher == nil:
		return nil, errors.New("fetcher is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxPages := opts.MaxInRunPages
	if maxPages <= 0 {
		maxPages = defaultMaxInRunPages
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = ratelimit.Sleep
	}

	return &Orchestrator{
		registry:      opts.Registry,
		store:         opts.Store,
		fetcher:       opts.Fetcher,
		allowed:       opts.Allowed,
		logger:        logger.With("component", "etl"),
		metrics:       opts.Metrics,
		maxInRunPages: maxPages,
		sleep:         sleep,
		states:        make(map[string]models.RunState),
	}, nil
}

func (o *Orchestrator) Registry() *shops.Registry {
	return o.registry
}

// State reports where shop currently sits in its lifecycle.
func (o *Orchestrator) State(shop string) models.RunState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s, ok := o.states[shop]; ok {
		return s
	}
	return models.StateNotStarted
}

func (o *Orchestrator) setState(shop string, state models.RunState) {
	o.mu.Lock()
	prev, ok := o.states[shop]
	o.states[shop] = state
	o.mu.Unlock()

	if !ok {
		prev = models.StateNotStarted
	}
	o.logger.Info("state transition", "shop", shop, "from", prev, "to", state)
}

// DiscoverLinks runs the shop's discovery strategy for one category.
func (o *Orchestrator) DiscoverLinks(ctx context.Context, shop, category string) ([]string, error) {
	cfg, err := o.registry.Get(shop)
	if err != nil {
		return nil, err
	}
	return o.discover(ctx, cfg, category)
}

func (o *Orchestrator) discover(ctx context.Context, cfg *shops.Config, category string) ([]string, error) {
	env := discovery.Env{
		Shop:    cfg.Shop,
		Fetcher: o.fetcher,
		Logger:  o.logger.With("shop", cfg.Name()),
	}
	return discovery.Discover(ctx, env, cfg.Discovery, category, o.allowed)
}

// RefreshLinks rebuilds the staged URL table for shop from every category
// and folds it into the canonical URL table. It returns the number of links
// staged.
func (o *Orchestrator) RefreshLinks(ctx context.Context, shop string) (int64, error) {
	cfg, err := o.registry.Get(shop)
	if err != nil {
		return 0, err
	}
	logger := o.logger.With("shop", shop)

	o.setState(shop, models.StateDiscoveringLinks)
	o.purgeCache()
	if err := o.store.TruncateStagedURLs(ctx); err != nil {
		return 0, err
	}

	var total int64
	for _, category := range cfg.Shop.Categories {
		links, err := o.discover(ctx, cfg, category)
		if err != nil {
			return total, fmt.Errorf("failed to discover %s/%s: %w", shop, category, err)
		}
		o.metrics.AddLinks(shop, len(links))

		n, err := o.store.LoadStagedURLs(ctx, shop, links)
		if err != nil {
			return total, err
		}
		total += n
	}

	if err := o.store.RunTransform(ctx, store.TransformURLs); err != nil {
		return total, err
	}

	o.setState(shop, models.StateLinksLoaded)
	logger.Info("links refreshed", "categories", len(cfg.Shop.Categories), "links", total)
	return total, nil
}

// Run scrapes every URL of shop not yet DONE. Extraction and fetch failures
// mark the URL FAILED and the loop moves on; storage failures abort.
func (o *Orchestrator) Run(ctx context.Context, shop string) (RunSummary, error) {
	summary := RunSummary{Shop: shop}

	cfg, err := o.registry.Get(shop)
	if err != nil {
		return summary, err
	}
	logger := o.logger.With("shop", shop)

	o.setState(shop, models.StateScraping)
	o.purgeCache()

	// Rows left staged by an interrupted run belong to URLs already DONE.
	if err := o.consolidate(ctx); err != nil {
		return summary, fmt.Errorf("failed to consolidate leftover rows: %w", err)
	}
	if err := o.store.TruncateStagedProducts(ctx); err != nil {
		return summary, err
	}

	pending, err := o.store.PendingURLs(ctx, shop)
	if err != nil {
		return summary, err
	}
	logger.Info("scraping urls", "pending", len(pending))

	for _, u := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Attempted++

		rows, xerr := o.scrape(ctx, cfg, u.URL)
		if xerr != nil {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			logger.Warn("url failed", "url", u.URL, "error", xerr.Cause)
			o.metrics.IncTransformFailure(shop)
			if err := o.store.FailURL(ctx, u, xerr); err != nil {
				return summary, err
			}
			o.metrics.IncOutcome(shop, string(models.StatusFailed))
			summary.Failed++
			continue
		}

		n, err := o.store.CompleteURL(ctx, u, rows)
		if err != nil {
			return summary, err
		}
		o.metrics.IncOutcome(shop, string(models.StatusDone))
		summary.Done++
		summary.Rows += n
	}

	if err := o.consolidate(ctx); err != nil {
		return summary, err
	}

	o.setState(shop, models.StateDone)
	logger.Info("run complete",
		"attempted", summary.Attempted,
		"done", summary.Done,
		"failed", summary.Failed,
		"rows", summary.Rows)
	return summary, nil
}

// consolidate folds the staged product rows into the canonical tables. The
// transforms are upserts, so repeating them over the same rows is harmless.
func (o *Orchestrator) consolidate(ctx context.Context) error {
	for _, name := range store.ProductTransforms {
		if err := o.store.RunTransform(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// purgeCache drops documents cached by a previous operation so each refresh
// or run sees the shop as it is now.
func (o *Orchestrator) purgeCache() {
	if c, ok := o.fetcher.(interface{ Purge() }); ok {
		c.Purge()
	}
}

// scrape fetches and transforms one URL, following the shop's in-run
// pagination when it has one. Any failure on any page fails the whole URL.
func (o *Orchestrator) scrape(ctx context.Context, cfg *shops.Config, url string) ([]models.ProductRecord, *extract.ExtractionError) {
	var all []models.ProductRecord
	seen := map[string]bool{url: true}

	req := cfg.DetailRequest(url)
	for page := 1; req != nil; page++ {
		doc, err := fetch.Document(ctx, o.fetcher, req)
		if err != nil {
			return nil, &extract.ExtractionError{Shop: cfg.Name(), URL: url, Cause: err}
		}

		p := &shops.Page{Shop: cfg.Shop, URL: req.URL, Doc: doc, Fetcher: o.fetcher}
		rows, xerr := extract.Run(cfg.Name(), req.URL, func() ([]models.ProductRecord, error) {
			return cfg.Transform(ctx, p)
		})
		if xerr != nil {
			xerr.URL = url
			return nil, xerr
		}
		all = append(all, rows...)

		req = nil
		if cfg.NextPage == nil || page >= o.maxInRunPages {
			break
		}
		if next := cfg.NextPage(doc); next != "" && !seen[next] {
			seen[next] = true
			req = cfg.DetailRequest(next)
		}
	}
	return all, nil
}

// ForEachShop applies fn to the named shops, or to every enabled shop when
// names is empty. Unknown names abort before any work starts; a failing shop
// is logged and the rest still run. The failures are returned joined.
func (o *Orchestrator) ForEachShop(ctx context.Context, names []string, fn func(ctx context.Context, shop string) error) error {
	if len(names) == 0 {
		names = o.registry.Names()
	}
	for _, name := range names {
		if _, err := o.registry.Get(name); err != nil {
			return err
		}
	}

	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, name); err != nil {
			o.logger.Error("shop failed", "shop", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

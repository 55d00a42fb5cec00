package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/maltedev/pet-products-scraper/internal/browser"
	"github.com/maltedev/pet-products-scraper/internal/config"
	"github.com/maltedev/pet-products-scraper/internal/etl"
	"github.com/maltedev/pet-products-scraper/internal/fetch"
	"github.com/maltedev/pet-products-scraper/internal/metrics"
	"github.com/maltedev/pet-products-scraper/internal/ratelimit"
	"github.com/maltedev/pet-products-scraper/internal/shops"
	"github.com/maltedev/pet-products-scraper/internal/store"
)

// app is the wired process: store, fetch stack, shop registry and engine.
type app struct {
	store   *store.Store
	browser *lazyBrowser
	metrics *metrics.Metrics
	engine  *etl.Orchestrator
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	m := metrics.New()

	st, err := openStore(ctx, cfg, logger, m)
	if err != nil {
		return nil, err
	}

	registry, err := newRegistry(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	lb := newLazyBrowser(browserOptions(cfg))
	client := fetch.NewClient(fetch.ClientOptions{
		HTTP: fetch.NewHTTPFetcher(fetch.HTTPOptions{
			Timeout:    cfg.Scraper.RequestTimeout,
			UserAgents: cfg.Scraper.UserAgents,
		}),
		Browser:  fetch.NewBrowserFetcher(lb),
		Retrier:  fetch.NewRetrier(cfg.Scraper.MaxAttempts, cfg.Scraper.RetryMinDelay, cfg.Scraper.RetryMaxDelay, logger),
		Limiters: ratelimit.NewOriginLimiters(cfg.Scraper.CourtesyMin, cfg.Scraper.CourtesyMax),
		Metrics:  m,
		Logger:   logger,
	})
	cached, err := fetch.NewCachingFetcher(client, cfg.Scraper.CacheSize)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}

	var allowed func(ctx context.Context, url string) bool
	if cfg.Scraper.RespectRobots {
		allowed = fetch.NewRobotsPolicy(cfg.Scraper.UserAgents[0], cfg.Scraper.RequestTimeout, logger).Allowed
	}

	engine, err := etl.New(etl.Options{
		Registry: registry,
		Store:    st,
		Fetcher:  cached,
		Allowed:  allowed,
		Logger:   logger,
		Metrics:  m,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{store: st, browser: lb, metrics: m, engine: engine}, nil
}

func (a *app) Close() {
	if err := a.browser.Close(); err != nil {
		logger.Warn("failed to close browser", "error", err)
	}
	a.store.Close()
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*store.Store, error) {
	return store.New(ctx, store.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.MaxConns,
	}, store.Options{
		Stream:  cfg.Redis.Stream,
		Logger:  logger,
		Metrics: m,
	})
}

func newRegistry(cfg *config.Config) (*shops.Registry, error) {
	registry := shops.Default(shops.Deps{
		AlgoliaAppID:    cfg.APIKeys.AlgoliaAppID,
		AlgoliaAPIKey:   cfg.APIKeys.AlgoliaAPIKey,
		FeefoMerchantID: cfg.APIKeys.FeefoMerchantID,
	})
	overrides, err := shops.LoadOverrides(cfg.Shops.OverridesFile)
	if err != nil {
		return nil, err
	}
	if err := registry.Apply(overrides); err != nil {
		return nil, fmt.Errorf("failed to apply shop overrides: %w", err)
	}
	return registry, nil
}

func browserOptions(cfg *config.Config) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Browser.Headless
	opts.Timeout = cfg.Browser.Timeout
	opts.UserAgents = cfg.Scraper.UserAgents
	opts.Locale = cfg.Browser.Locale
	opts.TimezoneID = cfg.Browser.TimezoneID
	opts.AcceptLanguage = cfg.Browser.AcceptLanguage
	opts.ViewportMinWidth = cfg.Browser.ViewportMinW
	opts.ViewportMaxWidth = cfg.Browser.ViewportMaxW
	opts.ViewportMinHeight = cfg.Browser.ViewportMinH
	opts.ViewportMaxHeight = cfg.Browser.ViewportMaxH
	return opts
}

// lazyBrowser launches Chromium on the first browser fetch. Most shops
// never need it.
type lazyBrowser struct {
	opts *browser.Options

	once sync.Once
	b    *browser.Browser
	err  error
}

func newLazyBrowser(opts *browser.Options) *lazyBrowser {
	return &lazyBrowser{opts: opts}
}

func (l *lazyBrowser) Load(ctx context.Context, req browser.LoadRequest) (*browser.LoadResult, error) {
	l.once.Do(func() {
		l.b, l.err = browser.New(l.opts)
	})
	if l.err != nil {
		return nil, l.err
	}
	return l.b.Load(ctx, req)
}

func (l *lazyBrowser) Close() error {
	if l.b == nil {
		return nil
	}
	return l.b.Close()
}

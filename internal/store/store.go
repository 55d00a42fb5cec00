// Package store is the Postgres side of the ETL: staged loads, URL status
// tracking and the named SQL transforms that fold staging into canonical
// tables.
package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maltedev/pet-products-scraper/internal/events"
	"github.com/maltedev/pet-products-scraper/internal/metrics"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

var ErrUnknownTransform = errors.New("unknown sql transform")

// Named transforms, run after a load.
const (
	TransformURLs          = "insert_into_urls"
	TransformProducts      = "insert_into_pet_products"
	TransformVariants      = "insert_into_pet_product_variants"
	TransformVariantPrices = "insert_into_pet_product_variant_prices"
)

// ProductTransforms is the consolidation chain run after a scrape, in order.
var ProductTransforms = []string{TransformProducts, TransformVariants, TransformVariantPrices}

const (
	stagedURLs     = "stg_urls"
	stagedProducts = "stg_pet_products"
)

type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	MaxConnLife time.Duration
	MaxConnIdle time.Duration
}

func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Database,
		RawQuery: "sslmode=" + sslMode,
	}
	return u.String()
}

type Store struct {
	pool    *pgxpool.Pool
	outbox  *events.Outbox
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Options struct {
	Stream  string
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func New(ctx context.Context, cfg Config, opts Options) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLife > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLife
	}
	if cfg.MaxConnIdle > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdle
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewWithPool(pool, opts), nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:    pool,
		outbox:  events.NewOutbox(pool, opts.Stream),
		logger:  logger.With("component", "store"),
		metrics: opts.Metrics,
	}
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Outbox exposes the event outbox sharing this store's pool.
func (s *Store) Outbox() *events.Outbox {
	return s.outbox
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// WithTx runs fn in a transaction, committing only when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	schema, err := sqlFiles.ReadFile("sql/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	s.logger.Info("schema applied")
	return nil
}

// TransformSQL returns the statement behind a named transform.
func TransformSQL(name string) (string, error) {
	if strings.ContainsAny(name, "/.") || name == "schema" {
		return "", fmt.Errorf("%w: %s", ErrUnknownTransform, name)
	}
	data, err := sqlFiles.ReadFile("sql/" + name + ".sql")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownTransform, name)
	}
	return string(data), nil
}

// RunTransform executes a named consolidation step.
func (s *Store) RunTransform(ctx context.Context, name string) error {
	query, err := TransformSQL(name)
	if err != nil {
		return err
	}

	start := time.Now()
	tag, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to run transform %s: %w", name, err)
	}
	s.logger.Info("transform executed",
		"transform", name,
		"rows", tag.RowsAffected(),
		"duration", time.Since(start))
	return nil
}

func (s *Store) truncate(ctx context.Context, table string) error {
	if _, err := s.pool.Exec(ctx, "TRUNCATE TABLE "+pgx.Identifier{table}.Sanitize()); err != nil {
		return fmt.Errorf("failed to truncate %s: %w", table, err)
	}
	s.logger.Info("table truncated", "table", table)
	return nil
}

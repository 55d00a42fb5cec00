package store

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/maltedev/pet-products-scraper/internal/events"
	"github.com/maltedev/pet-products-scraper/internal/extract"
	"github.com/maltedev/pet-products-scraper/internal/models"
)

func TestTransformSQL(t *testing.T) {
	for _, name := range append([]string{TransformURLs}, ProductTransforms...) {
		query, err := TransformSQL(name)
		require.NoError(t, err, name)
		assert.Contains(t, query, "INSERT INTO")
	}

	for _, name := range []string{"schema", "drop_everything", "../store", "sql/schema"} {
		_, err := TransformSQL(name)
		assert.ErrorIs(t, err, ErrUnknownTransform, name)
	}
}

func TestConfigDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, User: "etl", Password: "p@ss/word", Database: "pet_products"}
	assert.Equal(t, "postgres://etl:p%40ss%2Fword@db:5433/pet_products?sslmode=disable", cfg.DSN())

	cfg.SSLMode = "require"
	assert.Contains(t, cfg.DSN(), "sslmode=require")
}

func TestProductRows(t *testing.T) {
	rows := productRows([]models.ProductRecord{{
		Shop:               "Ocado",
		Name:               "Felix",
		Rating:             "4.3/5",
		URL:                "/products/felix",
		Variant:            nil,
		Price:              6,
		DiscountedPrice:    extract.Float(4.5),
		DiscountPercentage: extract.Float(0.25),
		ImageURLs:          []string{"a.jpg", "b.jpg"},
	}})

	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(productColumns))
	assert.Equal(t, "Ocado", rows[0][0])
	assert.Equal(t, 6.0, rows[0][6])
	assert.Equal(t, "a.jpg, b.jpg", *rows[0][9].(*string))
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	testcontainers.Logger = log.New(io.Discard, "", 0)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "pet_products",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
	})
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	s, err := New(ctx, Config{
		Host:     host,
		Port:     port.Int(),
		User:     "postgres",
		Password: "postgres",
		Database: "pet_products",
	}, Options{})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestStoreLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// Links: staged twice with a duplicate, consolidated once.
	require.NoError(t, s.TruncateStagedURLs(ctx))
	n, err := s.LoadStagedURLs(ctx, "Jollyes", []string{
		"https://www.jollyes.co.uk/a.html",
		"https://www.jollyes.co.uk/b.html",
		"https://www.jollyes.co.uk/a.html",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.NoError(t, s.RunTransform(ctx, TransformURLs))
	require.NoError(t, s.RunTransform(ctx, TransformURLs))

	pending, err := s.PendingURLs(ctx, "Jollyes")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, models.StatusPending, pending[0].Status)

	// One URL succeeds, one fails.
	require.NoError(t, s.TruncateStagedProducts(ctx))
	variant := "2kg"
	loaded, err := s.CompleteURL(ctx, pending[0], []models.ProductRecord{{
		Shop:               "Jollyes",
		Name:               "Bakers Adult",
		Rating:             "4.2/5",
		URL:                "/a.html",
		Variant:            &variant,
		Price:              20,
		DiscountedPrice:    extract.Float(15),
		DiscountPercentage: extract.Float(0.25),
	}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, loaded)
	require.NoError(t, s.FailURL(ctx, pending[1], errors.New("missing required field: title")))

	for _, name := range ProductTransforms {
		require.NoError(t, s.RunTransform(ctx, name))
	}

	var price, discounted float64
	require.NoError(t, s.Pool().QueryRow(ctx, `
		SELECT pr.price, pr.discounted_price
		FROM pet_product_variant_prices pr
		JOIN pet_product_variants v ON v.id = pr.variant_id
		WHERE v.variant = '2kg'`).Scan(&price, &discounted))
	assert.Equal(t, 20.0, price)
	assert.Equal(t, 15.0, discounted)

	// Only the failed URL is selected again.
	pending, err = s.PendingURLs(ctx, "Jollyes")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.StatusFailed, pending[0].Status)
	assert.NotNil(t, pending[0].StatusUpdatedAt)

	counts, err := s.CountByStatus(ctx, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.StatusCount{
		{Shop: "Jollyes", Status: models.StatusDone, Count: 1},
		{Shop: "Jollyes", Status: models.StatusFailed, Count: 1},
	}, counts)

	batch, err := s.Outbox().GetPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, events.EventURLScraped, batch[0].EventType)
	assert.Equal(t, events.EventURLFailed, batch[1].EventType)
	assert.Equal(t, events.DefaultStream, batch[0].TargetStream)

	require.NoError(t, s.Outbox().MarkProcessed(ctx, batch[0].ID))
	require.NoError(t, s.Outbox().MarkFailed(ctx, batch[1].ID, errors.New("redis down")))
	pendingEvents, dead, err := s.Outbox().Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pendingEvents)
	assert.Zero(t, dead)
}

func TestCompleteURLRollsBackOnUnknownURL(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	missing := models.DiscoveredURL{ID: 999, Shop: "Ocado", URL: "https://www.ocado.com/products/x"}
	_, err := s.CompleteURL(ctx, missing, []models.ProductRecord{{
		Shop: "Ocado", Name: "X", Rating: "0/5", URL: "/products/x", Price: 1,
	}})
	require.Error(t, err)

	var staged int
	require.NoError(t, s.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM stg_pet_products`).Scan(&staged))
	assert.Zero(t, staged)

	pendingEvents, _, err := s.Outbox().Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, pendingEvents)
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFetch("http", "ok", time.Second)
		m.AddLinks("PetsAtHome", 3)
		m.AddRows("stg_urls", 3)
		m.IncOutcome("PetsAtHome", "DONE")
		m.IncTransformFailure("PetsAtHome")
	})
}

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveFetch("http", "ok", 10*time.Millisecond)
	m.ObserveFetch("http", "challenge", 10*time.Millisecond)
	m.AddLinks("Purina", 48)
	m.IncOutcome("Purina", "FAILED")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("http", "ok")))
	assert.Equal(t, 48.0, testutil.ToFloat64(m.LinksDiscovered.WithLabelValues("Purina")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.URLOutcomes.WithLabelValues("Purina", "FAILED")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.AddRows("stg_pet_products", 2)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `petscraper_rows_loaded_total{table="stg_pet_products"} 2`)
}

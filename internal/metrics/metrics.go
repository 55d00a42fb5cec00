package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the Prometheus collectors for one process. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Registry         *prometheus.Registry
	FetchAttempts    *prometheus.CounterVec
	FetchDuration    *prometheus.HistogramVec
	LinksDiscovered  *prometheus.CounterVec
	RowsLoaded       *prometheus.CounterVec
	URLOutcomes      *prometheus.CounterVec
	TransformsFailed *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	fetchAttempts := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petscraper_fetch_attempts_total",
			Help: "Fetch attempts by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)
	fetchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "petscraper_fetch_duration_seconds",
			Help:    "Latency of single fetch attempts.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
	links := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petscraper_links_discovered_total",
			Help: "Product URLs discovered per shop.",
		},
		[]string{"shop"},
	)
	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petscraper_rows_loaded_total",
			Help: "Rows appended to staging tables.",
		},
		[]string{"table"},
	)
	outcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petscraper_url_outcomes_total",
			Help: "Final status written per scraped URL.",
		},
		[]string{"shop", "status"},
	)
	transforms := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petscraper_transform_failures_total",
			Help: "Extraction failures per shop.",
		},
		[]string{"shop"},
	)

	registry.MustRegister(fetchAttempts, fetchDuration, links, rows, outcomes, transforms)

	return &Metrics{
		Registry:         registry,
		FetchAttempts:    fetchAttempts,
		FetchDuration:    fetchDuration,
		LinksDiscovered:  links,
		RowsLoaded:       rows,
		URLOutcomes:      outcomes,
		TransformsFailed: transforms,
	}
}

func (m *Metrics) ObserveFetch(strategy, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(strategy, outcome).Inc()
	m.FetchDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

func (m *Metrics) AddLinks(shop string, n int) {
	if m == nil {
		return
	}
	m.LinksDiscovered.WithLabelValues(shop).Add(float64(n))
}

func (m *Metrics) AddRows(table string, n int) {
	if m == nil {
		return
	}
	m.RowsLoaded.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) IncOutcome(shop, status string) {
	if m == nil {
		return
	}
	m.URLOutcomes.WithLabelValues(shop, status).Inc()
}

func (m *Metrics) IncTransformFailure(shop string) {
	if m == nil {
		return
	}
	m.TransformsFailed.WithLabelValues(shop).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

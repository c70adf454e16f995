// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	HTTPRequestsInFlight   prometheus.Gauge
	RecommendRequestsTotal *prometheus.CounterVec
	RecommendLatency       *prometheus.HistogramVec
	RecommendResultsCount  prometheus.Histogram
	CacheHitsTotal         prometheus.Counter
	CacheMissesTotal       prometheus.Counter
	IndexRebuildsTotal     *prometheus.CounterVec
	IndexRebuildDuration   prometheus.Histogram
	CatalogRecords         prometheus.Gauge
	IndexVocabularySize    prometheus.Gauge
	IndexSnapshotVersion   prometheus.Gauge
	CircuitBreakerState    *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates all collectors and registers them with reg. Tests
// pass a fresh prometheus.NewRegistry() so repeated construction does not
// panic on duplicate registration.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		RecommendRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommend_requests_total",
				Help: "Total recommendation requests by outcome (ok, empty, invalid_input, index_not_ready, ...).",
			},
			[]string{"outcome"},
		),
		RecommendLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "recommend_latency_seconds",
				Help:    "Recommendation latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"cache_status"},
		),
		RecommendResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "recommend_results_count",
				Help:    "Number of recommendations returned per request.",
				Buckets: []float64{0, 1, 3, 5, 10, 25, 50},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of result cache misses.",
			},
		),
		IndexRebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "index_rebuilds_total",
				Help: "Total index rebuilds by status (ok, failed, rejected).",
			},
			[]string{"status"},
		),
		IndexRebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "index_rebuild_duration_seconds",
				Help:    "Time to load the catalog and rebuild the index.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		CatalogRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "catalog_records",
				Help: "Number of records in the live catalog snapshot.",
			},
		),
		IndexVocabularySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_vocabulary_size",
				Help: "Number of distinct terms in the live index.",
			},
		),
		IndexSnapshotVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "index_snapshot_version",
				Help: "Version of the live catalog snapshot.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.RecommendRequestsTotal,
		m.RecommendLatency,
		m.RecommendResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.IndexRebuildsTotal,
		m.IndexRebuildDuration,
		m.CatalogRecords,
		m.IndexVocabularySize,
		m.IndexSnapshotVersion,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the scrape handler for the default registry.
func Handler() http.Handler {
	return HandlerFor(prometheus.DefaultGatherer)
}

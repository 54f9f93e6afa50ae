// Package metrics defines the Prometheus metric collectors used by the
// service and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	QueriesTotal         *prometheus.CounterVec
	QueryLatency         prometheus.Histogram
	QueryTermCount       prometheus.Histogram
	PageResultCount      prometheus.Histogram
	ChunkFetchesTotal    *prometheus.CounterVec
	ChunkFetchDuration   *prometheus.HistogramVec
	ChunkBytesFetched    *prometheus.CounterVec
	EngineResetsTotal    prometheus.Counter
	EngineArenaHighWater prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
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
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Total search queries by outcome (ok, default, short_circuit, malformed, over_limit, error).",
			},
			[]string{"outcome"},
		),
		QueryLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_query_duration_seconds",
				Help:    "End-to-end search query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		QueryTermCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_query_terms",
				Help:    "Number of terms per query across all modes.",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 50},
			},
		),
		PageResultCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_page_results",
				Help:    "Number of documents returned per result page.",
				Buckets: []float64{0, 1, 5, 10, 20, 50},
			},
		),
		ChunkFetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_fetches_total",
				Help: "Total chunk fetches by keyspace and outcome (ok, miss, error).",
			},
			[]string{"keyspace", "outcome"},
		),
		ChunkFetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "chunk_fetch_duration_seconds",
				Help:    "Blob-store chunk fetch latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			},
			[]string{"keyspace"},
		),
		ChunkBytesFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chunk_bytes_fetched_total",
				Help: "Total bytes fetched from the blob store by keyspace.",
			},
			[]string{"keyspace"},
		),
		EngineResetsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "engine_resets_total",
				Help: "Total computation engine arena resets.",
			},
		),
		EngineArenaHighWater: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "engine_arena_high_water_bytes",
				Help: "Largest arena size observed since process start.",
			},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.QueriesTotal,
		m.QueryLatency,
		m.QueryTermCount,
		m.PageResultCount,
		m.ChunkFetchesTotal,
		m.ChunkFetchDuration,
		m.ChunkBytesFetched,
		m.EngineResetsTotal,
		m.EngineArenaHighWater,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package server exposes the search HTTP surface: one endpoint serving
// GET/HEAD/POST (query evaluation) and OPTIONS (CORS preflight, handled by
// middleware), plus health probes.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/edgequery/edgequery/internal/analytics"
	"github.com/edgequery/edgequery/internal/search"
	errs "github.com/edgequery/edgequery/pkg/errors"
	"github.com/edgequery/edgequery/pkg/logger"
	"github.com/edgequery/edgequery/pkg/metrics"
)

// Searcher is the query pipeline the handler drives.
type Searcher interface {
	Search(ctx context.Context, q *search.ParsedQuery) (*search.Page, error)
}

type Handler struct {
	searcher      Searcher
	collector     *analytics.Collector
	maxTerms      int
	maxQueryBytes int
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

func New(searcher Searcher, collector *analytics.Collector, maxTerms, maxQueryBytes int, m *metrics.Metrics) *Handler {
	return &Handler{
		searcher:      searcher,
		collector:     collector,
		maxTerms:      maxTerms,
		maxQueryBytes: maxQueryBytes,
		metrics:       m,
		logger:        slog.Default().With("component", "search-handler"),
	}
}

// Search serves the single query endpoint. GET, HEAD, and POST all evaluate
// the query parameters; HEAD suppresses the body. The response body is only
// written once the page is fully computed, so a failed request never emits
// partial output.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
	default:
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q, err := search.Parse(r.URL.Query(), h.maxTerms, h.maxQueryBytes)
	if err != nil {
		h.countOutcome(err)
		log.Warn("query rejected", "error", err)
		h.writeError(w, errs.HTTPStatusCode(err), err.Error())
		return
	}

	page, err := h.searcher.Search(ctx, q)
	if err != nil {
		h.countOutcome(err)
		log.Error("search failed", "error", err)
		h.writeError(w, errs.HTTPStatusCode(err), err.Error())
		return
	}

	latency := time.Since(start)
	if h.metrics != nil {
		h.metrics.QueriesTotal.WithLabelValues(string(page.Outcome)).Inc()
		h.metrics.QueryLatency.Observe(latency.Seconds())
		h.metrics.QueryTermCount.Observe(float64(q.TermCount()))
	}
	log.Info("search completed",
		"outcome", page.Outcome,
		"total", page.Total,
		"returned", len(page.Docs),
		"cursor", q.Cursor,
		"latency_ms", latency.Milliseconds(),
	)
	if h.collector != nil {
		h.collector.Track(analytics.QueryEvent{
			Outcome:      string(page.Outcome),
			RequireTerms: len(q.Require),
			ContainTerms: len(q.Contain),
			ExcludeTerms: len(q.Exclude),
			Cursor:       q.Cursor,
			TotalMatches: page.Total,
			Returned:     len(page.Docs),
			LatencyMs:    latency.Milliseconds(),
			Timestamp:    time.Now().UTC(),
			RequestID:    logger.RequestID(ctx),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if err := search.WritePage(w, page); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) countOutcome(err error) {
	if h.metrics == nil {
		return
	}
	switch errs.HTTPStatusCode(err) {
	case http.StatusBadRequest:
		h.metrics.QueriesTotal.WithLabelValues("malformed").Inc()
	case http.StatusRequestEntityTooLarge:
		h.metrics.QueriesTotal.WithLabelValues("over_limit").Inc()
	default:
		h.metrics.QueriesTotal.WithLabelValues("error").Inc()
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to write error response", "error", err)
	}
}

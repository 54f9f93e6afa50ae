// Package analytics publishes per-query events to Kafka through a buffered,
// drop-on-full collector, so tracking never blocks or fails a request.
package analytics

import "time"

type QueryEvent struct {
	Outcome      string    `json:"outcome"`
	RequireTerms int       `json:"require_terms"`
	ContainTerms int       `json:"contain_terms"`
	ExcludeTerms int       `json:"exclude_terms"`
	Cursor       int32     `json:"cursor"`
	TotalMatches uint32    `json:"total_matches"`
	Returned     int       `json:"returned"`
	LatencyMs    int64     `json:"latency_ms"`
	Timestamp    time.Time `json:"timestamp"`
	RequestID    string    `json:"request_id"`
}

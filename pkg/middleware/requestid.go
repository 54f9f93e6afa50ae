// Package middleware provides reusable HTTP middleware for request IDs,
// Prometheus metrics, request timeouts, and CORS.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/edgequery/edgequery/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID assigns each request an identifier, stores it in the request
// context, and echoes it back in the response headers. An incoming
// X-Request-ID header is honoured.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func newRequestID() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b[:])
}

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrMalformedQuery   = errors.New("malformed query")
	ErrQueryTooLarge    = errors.New("query exceeds configured limits")
	ErrNotFound         = errors.New("key not found")
	ErrStoreUnavailable = errors.New("blob store unavailable")
	ErrMalformedChunk   = errors.New("malformed chunk")
	ErrDecode           = errors.New("wire decode failure")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the status the search endpoint reports.
// Soft misses (ErrNotFound) never reach the HTTP layer on the search path;
// the mapping here is for direct lookups and fallback classification.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrMalformedQuery):
		return http.StatusBadRequest
	case errors.Is(err, ErrQueryTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

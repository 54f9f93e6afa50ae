// Package wire implements the bounds-checked codec used for every structure
// crossing the computation-engine boundary: sequential position-tracked
// readers and writers over a byte buffer, and a restricted printf-style
// format interpreter for diagnostic messages.
//
// The engine's own traversal code trusts Go's slice bounds checking; the
// host side must never read past a buffer, so every primitive here returns
// an explicit error instead of panicking or truncating.
package wire

import "errors"

var (
	// ErrOutOfBounds is returned when a read or write would pass the end of
	// the underlying buffer. The position is left unchanged.
	ErrOutOfBounds = errors.New("wire: operation out of bounds")

	// ErrUnterminated is returned when a null-terminated string runs off the
	// end of the buffer.
	ErrUnterminated = errors.New("wire: unterminated string")

	// ErrBadFormat is returned for format strings using unsupported flags,
	// widths, precisions, or length/verb combinations.
	ErrBadFormat = errors.New("wire: unsupported format specifier")
)

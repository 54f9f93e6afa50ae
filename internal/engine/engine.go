// Package engine hosts the computation module: chunk tree search and the
// boolean query evaluator, executing over a private linear memory with a
// bump allocator. An Engine serves exactly one request at a time; Reset
// reclaims the whole arena and must precede each request's first call.
// Everything entering or leaving the engine goes through the wire codec,
// and diagnostics cross the boundary as (format string, argument buffer)
// pairs decoded by the wire format interpreter.
package engine

import (
	"fmt"
	"log/slog"

	errs "github.com/edgequery/edgequery/pkg/errors"

	"github.com/edgequery/edgequery/internal/wire"
)

const (
	// initialArenaSize is the arena allocation a fresh engine starts with.
	initialArenaSize = 1 << 20

	// maxArenaSize caps arena growth. An allocation pushing past this is a
	// hard failure, not an OOM.
	maxArenaSize = 256 << 20

	// nullRef is never returned by Alloc; it doubles as the evaluator's
	// failure sentinel.
	nullRef uint32 = 0

	// arenaBase reserves the low bytes of the arena so that nullRef is
	// never a valid allocation.
	arenaBase = 8
)

// Engine owns one linear memory region and evaluates chunk searches and
// boolean queries inside it.
type Engine struct {
	pageSize int
	mem      []byte
	top      int
	logger   *slog.Logger
}

// New creates an Engine with the given result page size.
func New(pageSize int) *Engine {
	return &Engine{
		pageSize: pageSize,
		mem:      make([]byte, initialArenaSize),
		top:      arenaBase,
		logger:   slog.Default().With("component", "engine"),
	}
}

// Reset reclaims the arena wholesale. No individual deallocation exists;
// every reference handed out before Reset is invalid afterwards.
func (e *Engine) Reset() {
	e.top = arenaBase
}

// ArenaSize returns the current arena capacity in bytes.
func (e *Engine) ArenaSize() int {
	return len(e.mem)
}

// Alloc reserves size bytes and returns a reference to them. References are
// plain offsets into the engine's memory; they stay valid until Reset.
func (e *Engine) Alloc(size int) (uint32, error) {
	if size < 0 {
		return nullRef, fmt.Errorf("%w: negative allocation %d", errs.ErrInternal, size)
	}
	need := e.top + size
	if need > maxArenaSize {
		return nullRef, fmt.Errorf("%w: arena limit exceeded (%d bytes requested, %d in use)",
			errs.ErrInternal, size, e.top)
	}
	for need > len(e.mem) {
		grown := make([]byte, max(len(e.mem)*2, need))
		copy(grown, e.mem[:e.top])
		e.mem = grown
	}
	ref := uint32(e.top)
	e.top = need
	return ref, nil
}

// Write copies p into engine memory at ref. The region must have been
// allocated first.
func (e *Engine) Write(ref uint32, p []byte) error {
	if int64(ref)+int64(len(p)) > int64(e.top) {
		return fmt.Errorf("%w: write of %d bytes at ref %d exceeds arena", errs.ErrDecode, len(p), ref)
	}
	copy(e.mem[ref:], p)
	return nil
}

// Bytes returns a view of n bytes of engine memory at ref. The view is valid
// until the next Reset.
func (e *Engine) Bytes(ref uint32, n uint32) ([]byte, error) {
	if int64(ref)+int64(n) > int64(e.top) {
		return nil, fmt.Errorf("%w: read of %d bytes at ref %d exceeds arena", errs.ErrDecode, n, ref)
	}
	return e.mem[ref : ref+n], nil
}

// Load allocates engine memory for data and copies it in, returning its
// reference. This is how chunk bytes and bitmap buffers enter the module.
func (e *Engine) Load(data []byte) (uint32, error) {
	ref, err := e.Alloc(len(data))
	if err != nil {
		return nullRef, err
	}
	if err := e.Write(ref, data); err != nil {
		return nullRef, err
	}
	return ref, nil
}

// logf emits an informational diagnostic across the boundary: the format
// string and argument slots are written into the arena and materialized back
// through the wire format interpreter, exactly as an isolated module would
// report them.
func (e *Engine) logf(format string, args ...uint64) {
	msg, err := e.emitDiag(format, args)
	if err != nil {
		e.logger.Warn("undecodable engine diagnostic", "error", err)
		return
	}
	e.logger.Info(msg)
}

// errorf is the fatal counterpart of logf: the materialized text becomes the
// request failure.
func (e *Engine) errorf(format string, args ...uint64) error {
	msg, err := e.emitDiag(format, args)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrDecode, err)
	}
	return fmt.Errorf("%w: %s", errs.ErrInternal, msg)
}

func (e *Engine) emitDiag(format string, args []uint64) (string, error) {
	f, err := wire.Compile(format)
	if err != nil {
		return "", err
	}
	if f.NumArgs() != len(args) {
		return "", fmt.Errorf("%w: %d args for %d conversions", wire.ErrBadFormat, len(args), f.NumArgs())
	}

	formatRef, err := e.Alloc(len(format) + 1)
	if err != nil {
		return "", err
	}
	argsRef, err := e.Alloc(len(args) * 8)
	if err != nil {
		return "", err
	}
	w := wire.NewWriter(e.mem[:e.top])
	if err := w.Seek(formatRef); err != nil {
		return "", err
	}
	if err := w.PutCString(format); err != nil {
		return "", err
	}
	if err := w.Seek(argsRef); err != nil {
		return "", err
	}
	for _, a := range args {
		if err := w.PutU64LE(a); err != nil {
			return "", err
		}
	}

	return e.decodeDiag(formatRef, argsRef)
}

// decodeDiag is the host side of the diagnostic callback: it reads the format
// string and argument buffer out of engine memory and interprets them.
func (e *Engine) decodeDiag(formatRef, argsRef uint32) (string, error) {
	mem := e.mem[:e.top]
	r := wire.NewReader(mem)
	if err := r.Seek(formatRef); err != nil {
		return "", err
	}
	format, err := r.CString()
	if err != nil {
		return "", err
	}
	f, err := wire.Compile(format)
	if err != nil {
		return "", err
	}
	argBuf, err := e.Bytes(argsRef, uint32(f.NumArgs()*8))
	if err != nil {
		return "", err
	}
	return f.Interp(mem, argBuf)
}

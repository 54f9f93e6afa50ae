package wire

import (
	"encoding/binary"
	"math"
)

// Writer encodes primitives sequentially into a fixed-size byte buffer,
// tracking its position. Every write is bounds-checked; a failed write does
// not advance and leaves the buffer untouched.
type Writer struct {
	buf []byte
	pos int
}

// NewWriter creates a Writer positioned at the start of buf.
func NewWriter(buf []byte) *Writer {
	return &Writer{buf: buf}
}

// Pos returns the current write position.
func (w *Writer) Pos() int {
	return w.pos
}

// Seek repositions the writer at off.
func (w *Writer) Seek(off uint32) error {
	if int64(off) > int64(len(w.buf)) {
		return ErrOutOfBounds
	}
	w.pos = int(off)
	return nil
}

func (w *Writer) reserve(n int) ([]byte, error) {
	if n < 0 || w.pos+n > len(w.buf) {
		return nil, ErrOutOfBounds
	}
	b := w.buf[w.pos : w.pos+n]
	w.pos += n
	return b, nil
}

func (w *Writer) PutU8(v uint8) error {
	b, err := w.reserve(1)
	if err != nil {
		return err
	}
	b[0] = v
	return nil
}

func (w *Writer) PutU32LE(v uint32) error {
	b, err := w.reserve(4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, v)
	return nil
}

func (w *Writer) PutU32BE(v uint32) error {
	b, err := w.reserve(4)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint32(b, v)
	return nil
}

func (w *Writer) PutI32LE(v int32) error {
	return w.PutU32LE(uint32(v))
}

func (w *Writer) PutU64LE(v uint64) error {
	b, err := w.reserve(8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, v)
	return nil
}

func (w *Writer) PutU64BE(v uint64) error {
	b, err := w.reserve(8)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint64(b, v)
	return nil
}

func (w *Writer) PutI64LE(v int64) error {
	return w.PutU64LE(uint64(v))
}

// PutF64LE writes a little-endian IEEE-754 double.
func (w *Writer) PutF64LE(v float64) error {
	return w.PutU64LE(math.Float64bits(v))
}

// PutBytes bulk-copies p at the current position.
func (w *Writer) PutBytes(p []byte) error {
	b, err := w.reserve(len(p))
	if err != nil {
		return err
	}
	copy(b, p)
	return nil
}

// PutCString writes s followed by a NUL terminator.
func (w *Writer) PutCString(s string) error {
	b, err := w.reserve(len(s) + 1)
	if err != nil {
		return err
	}
	copy(b, s)
	b[len(s)] = 0
	return nil
}

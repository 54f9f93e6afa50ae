package wire

import (
	"encoding/binary"
	"math"
)

// Reader decodes primitives sequentially from a byte buffer, tracking its
// position. Every read is bounds-checked; a failed read does not advance.
type Reader struct {
	buf []byte
	pos int
}

// NewReader creates a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the current read position.
func (r *Reader) Pos() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.pos
}

// Seek repositions the reader at off.
func (r *Reader) Seek(off uint32) error {
	if int64(off) > int64(len(r.buf)) {
		return ErrOutOfBounds
	}
	r.pos = int(off)
	return nil
}

// take reserves n bytes at the current position.
func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, ErrOutOfBounds
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) U8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

func (r *Reader) U32LE() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) U32BE() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) I32LE() (int32, error) {
	v, err := r.U32LE()
	return int32(v), err
}

func (r *Reader) I32BE() (int32, error) {
	v, err := r.U32BE()
	return int32(v), err
}

func (r *Reader) U64LE() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) U64BE() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *Reader) I64LE() (int64, error) {
	v, err := r.U64LE()
	return int64(v), err
}

func (r *Reader) I64BE() (int64, error) {
	v, err := r.U64BE()
	return int64(v), err
}

// F64LE reads a little-endian IEEE-754 double.
func (r *Reader) F64LE() (float64, error) {
	v, err := r.U64LE()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// Bytes returns a view of the next n bytes. The slice aliases the underlying
// buffer and is only valid for the buffer's lifetime.
func (r *Reader) Bytes(n int) ([]byte, error) {
	return r.take(n)
}

// CString reads bytes up to (not including) the next NUL and positions the
// reader after the terminator.
func (r *Reader) CString() (string, error) {
	for i := r.pos; i < len(r.buf); i++ {
		if r.buf[i] == 0 {
			s := string(r.buf[r.pos:i])
			r.pos = i + 1
			return s, nil
		}
	}
	return "", ErrUnterminated
}

// Ref reads a little-endian u32 offset and repositions the reader there,
// "following the reference" within the same buffer.
func (r *Reader) Ref() error {
	off, err := r.U32LE()
	if err != nil {
		return err
	}
	return r.Seek(off)
}

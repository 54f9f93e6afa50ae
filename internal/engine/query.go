package engine

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	errs "github.com/edgequery/edgequery/pkg/errors"

	"github.com/edgequery/edgequery/internal/wire"
)

// QueryInput wire layout, little-endian, at the input reference:
//
//	[cursor i32]
//	3 × mode list, in order Require, Contain, Exclude:
//	    repeated [bitmapLen u32][bitmapRef u32], terminated by bitmapLen 0
//
// QueryResult wire layout at the result reference:
//
//	[hasNext u8][nextCursor u32][total u32][count u32][count × docID u32]

// BitmapRef locates one serialized postings bitmap inside engine memory.
type BitmapRef struct {
	Ref uint32
	Len uint32
}

// QueryResult is the host-side decoding of an evaluator result.
type QueryResult struct {
	NextCursor   *uint32
	TotalMatches uint32
	PageDocIDs   []uint32
}

// BuildQueryInput encodes a QueryInput into the arena and returns its
// reference. Each mode list is zero-length-sentinel terminated.
func (e *Engine) BuildQueryInput(cursor int32, require, contain, exclude []BitmapRef) (uint32, error) {
	size := 4
	for _, mode := range [][]BitmapRef{require, contain, exclude} {
		size += len(mode)*8 + 4
	}
	ref, err := e.Alloc(size)
	if err != nil {
		return nullRef, err
	}
	w := wire.NewWriter(e.mem[:e.top])
	if err := w.Seek(ref); err != nil {
		return nullRef, err
	}
	if err := w.PutI32LE(cursor); err != nil {
		return nullRef, err
	}
	for _, mode := range [][]BitmapRef{require, contain, exclude} {
		for _, b := range mode {
			if b.Len == 0 {
				return nullRef, fmt.Errorf("%w: zero-length bitmap in query input", errs.ErrInternal)
			}
			if err := w.PutU32LE(b.Len); err != nil {
				return nullRef, err
			}
			if err := w.PutU32LE(b.Ref); err != nil {
				return nullRef, err
			}
		}
		if err := w.PutU32LE(0); err != nil {
			return nullRef, err
		}
	}
	return ref, nil
}

// ExecuteQuery evaluates the boolean combination described by the QueryInput
// at inputRef and writes a QueryResult into the arena, returning its
// reference. The result set is (∩Require ∩ ∪Contain) \ ∪Exclude with empty
// Require/Contain lists acting as no restriction, materialized in ascending
// document-id order; the returned page is [cursor, cursor+pageSize).
func (e *Engine) ExecuteQuery(inputRef uint32) (uint32, error) {
	r := wire.NewReader(e.mem[:e.top])
	if err := r.Seek(inputRef); err != nil {
		return nullRef, e.errorf("query input ref %u outside arena", uint64(inputRef))
	}
	cursor, err := r.I32LE()
	if err != nil {
		return nullRef, e.errorf("query input truncated at cursor")
	}
	if cursor < 0 {
		cursor = 0
	}

	var modes [3][]*roaring.Bitmap
	for m := 0; m < 3; m++ {
		for {
			length, err := r.U32LE()
			if err != nil {
				return nullRef, e.errorf("query input truncated in mode %u", uint64(m))
			}
			if length == 0 {
				break
			}
			ref, err := r.U32LE()
			if err != nil {
				return nullRef, e.errorf("query input truncated in mode %u", uint64(m))
			}
			buf, err := e.Bytes(ref, length)
			if err != nil {
				return nullRef, e.errorf("bitmap [%u,+%u) outside arena", uint64(ref), uint64(length))
			}
			bm := roaring.New()
			if err := bm.UnmarshalBinary(buf); err != nil {
				return nullRef, e.errorf("undecodable bitmap at %u", uint64(ref))
			}
			modes[m] = append(modes[m], bm)
		}
	}
	require, contain, exclude := modes[0], modes[1], modes[2]
	if len(require) == 0 && len(contain) == 0 {
		// The resolution policy never produces this: empty queries take the
		// default snapshot and exclude-only queries carry the doc universe.
		return nullRef, e.errorf("query with no positive bitmaps")
	}

	var result *roaring.Bitmap
	for _, bm := range require {
		if result == nil {
			result = bm.Clone()
		} else {
			result.And(bm)
		}
	}
	if len(contain) > 0 {
		union := roaring.ParOr(0, contain...)
		if result == nil {
			result = union
		} else {
			result.And(union)
		}
	}
	if len(exclude) > 0 {
		result.AndNot(roaring.ParOr(0, exclude...))
	}

	total := result.GetCardinality()
	page := make([]uint32, 0, e.pageSize)
	for i := 0; i < e.pageSize; i++ {
		rank := uint64(cursor) + uint64(i)
		if rank >= total {
			break
		}
		id, err := result.Select(uint32(rank))
		if err != nil {
			return nullRef, e.errorf("rank %llu beyond cardinality %llu", rank, total)
		}
		page = append(page, id)
	}
	hasNext := uint64(cursor)+uint64(e.pageSize) < total

	resultRef, err := e.Alloc(1 + 4 + 4 + 4 + 4*len(page))
	if err != nil {
		return nullRef, err
	}
	w := wire.NewWriter(e.mem[:e.top])
	if err := w.Seek(resultRef); err != nil {
		return nullRef, err
	}
	next := uint8(0)
	if hasNext {
		next = 1
	}
	if err := w.PutU8(next); err != nil {
		return nullRef, err
	}
	if err := w.PutU32LE(uint32(cursor) + uint32(e.pageSize)); err != nil {
		return nullRef, err
	}
	if err := w.PutU32LE(uint32(total)); err != nil {
		return nullRef, err
	}
	if err := w.PutU32LE(uint32(len(page))); err != nil {
		return nullRef, err
	}
	for _, id := range page {
		if err := w.PutU32LE(id); err != nil {
			return nullRef, err
		}
	}

	e.logf("query evaluated: %llu matches, %u returned, cursor %d",
		total, uint64(len(page)), uint64(uint32(cursor)))
	return resultRef, nil
}

// DecodeResult reads a QueryResult out of engine memory with full bounds
// checking. A null reference for a well-formed input is an internal failure.
func (e *Engine) DecodeResult(resultRef uint32) (*QueryResult, error) {
	if resultRef == nullRef {
		return nil, fmt.Errorf("%w: evaluator returned null result", errs.ErrInternal)
	}
	r := wire.NewReader(e.mem[:e.top])
	if err := r.Seek(resultRef); err != nil {
		return nil, err
	}
	hasNext, err := r.U8()
	if err != nil {
		return nil, err
	}
	nextCursor, err := r.U32LE()
	if err != nil {
		return nil, err
	}
	total, err := r.U32LE()
	if err != nil {
		return nil, err
	}
	count, err := r.U32LE()
	if err != nil {
		return nil, err
	}
	out := &QueryResult{TotalMatches: total, PageDocIDs: make([]uint32, 0, count)}
	if hasNext != 0 {
		out.NextCursor = &nextCursor
	}
	for i := uint32(0); i < count; i++ {
		id, err := r.U32LE()
		if err != nil {
			return nil, err
		}
		out.PageDocIDs = append(out.PageDocIDs, id)
	}
	return out, nil
}

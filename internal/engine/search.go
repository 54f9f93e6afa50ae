package engine

import (
	"fmt"

	errs "github.com/edgequery/edgequery/pkg/errors"

	"github.com/edgequery/edgequery/internal/chunk"
	"github.com/edgequery/edgequery/internal/wire"
)

// maxTreeVisits caps traversal depth. A balanced tree over a 32-bit keyspace
// never exceeds 32 levels, so hitting the cap means the chunk encodes a cycle
// or a degenerate structure and is rejected as malformed.
const maxTreeVisits = 64

// Search binary-searches the flattened tree of a chunk previously loaded at
// chunkRef for an exact key match. On a hit it returns the payload's absolute
// reference and length; a miss is (0, 0, false, nil), never an error.
// Out-of-range node, child, or payload offsets and over-deep traversals are
// rejected as malformed chunks.
func (e *Engine) Search(chunkRef, chunkLen, rootOff uint32, ks chunk.Keyspace, key []byte) (uint32, uint32, bool, error) {
	view, err := e.Bytes(chunkRef, chunkLen)
	if err != nil {
		return 0, 0, false, err
	}
	r := wire.NewReader(view)

	off := rootOff
	for visits := 0; ; visits++ {
		if visits >= maxTreeVisits {
			return 0, 0, false, fmt.Errorf("%w: traversal exceeded %d nodes", errs.ErrMalformedChunk, maxTreeVisits)
		}
		if off == chunk.NoChild {
			return 0, 0, false, nil
		}
		if err := r.Seek(off); err != nil {
			return 0, 0, false, fmt.Errorf("%w: node offset %d outside chunk of %d bytes", errs.ErrMalformedChunk, off, chunkLen)
		}
		left, right, payloadOff, payloadLen, nodeKey, err := readNode(r)
		if err != nil {
			return 0, 0, false, fmt.Errorf("%w: truncated node at offset %d", errs.ErrMalformedChunk, off)
		}

		switch cmp := chunk.CompareKeys(ks, key, nodeKey); {
		case cmp < 0:
			off = left
		case cmp > 0:
			off = right
		default:
			if int64(payloadOff)+int64(payloadLen) > int64(chunkLen) {
				return 0, 0, false, fmt.Errorf("%w: payload [%d,%d) outside chunk of %d bytes",
					errs.ErrMalformedChunk, payloadOff, payloadOff+payloadLen, chunkLen)
			}
			return chunkRef + payloadOff, payloadLen, true, nil
		}
	}
}

func readNode(r *wire.Reader) (left, right, payloadOff, payloadLen uint32, key []byte, err error) {
	if left, err = r.U32LE(); err != nil {
		return
	}
	if right, err = r.U32LE(); err != nil {
		return
	}
	if payloadOff, err = r.U32LE(); err != nil {
		return
	}
	if payloadLen, err = r.U32LE(); err != nil {
		return
	}
	var keyLen uint16
	var b []byte
	if b, err = r.Bytes(2); err != nil {
		return
	}
	keyLen = uint16(b[0]) | uint16(b[1])<<8
	key, err = r.Bytes(int(keyLen))
	return
}

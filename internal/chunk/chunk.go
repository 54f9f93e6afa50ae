// Package chunk defines the on-disk layout of index chunks: a flattened
// binary search tree of entries serialized into a single byte blob, stored in
// the blob store under a chunk-id key. The offline build pipeline and test
// fixtures produce chunks with Builder; the computation engine searches them.
//
// Node layout, little-endian, at an arbitrary offset within the chunk:
//
//	[left u32][right u32][payloadOff u32][payloadLen u32][keyLen u16][key bytes]
//
// An absent child is encoded as NoChild. Payload offsets are relative to the
// start of the chunk. Term keys are raw UTF-8 and compare
// byte-lexicographically; document keys are 4-byte little-endian u32 and
// compare numerically.
package chunk

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

const (
	// NoChild marks an absent left or right child.
	NoChild uint32 = 0xFFFFFFFF

	// NodeFixedSize is the size of a node before its key bytes.
	NodeFixedSize = 18

	// MaxKeyLen bounds a single key. Longer keys are a build error.
	MaxKeyLen = 0xFFFF
)

// Keyspace selects the key comparison rule for a chunk.
type Keyspace int

const (
	KeyspaceTerm Keyspace = iota
	KeyspaceDoc
)

func (k Keyspace) String() string {
	if k == KeyspaceDoc {
		return "doc"
	}
	return "term"
}

// CompareKeys orders two encoded keys under the keyspace's rule.
func CompareKeys(ks Keyspace, a, b []byte) int {
	if ks == KeyspaceDoc && len(a) == 4 && len(b) == 4 {
		av := binary.LittleEndian.Uint32(a)
		bv := binary.LittleEndian.Uint32(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	}
	return bytes.Compare(a, b)
}

// EncodeDocKey encodes a document id as a chunk key.
func EncodeDocKey(id uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], id)
	return b[:]
}

// Entry is one (key, payload) pair inserted into a Builder.
type Entry struct {
	Key     []byte
	Payload []byte
}

// Builder accumulates entries and serializes them as a balanced flattened
// search tree.
type Builder struct {
	keyspace Keyspace
	entries  []Entry
}

// NewBuilder creates a Builder for the given keyspace.
func NewBuilder(ks Keyspace) *Builder {
	return &Builder{keyspace: ks}
}

// Add inserts an entry. Keys must be unique; duplicates are a build error
// reported by Build.
func (b *Builder) Add(key, payload []byte) {
	b.entries = append(b.entries, Entry{Key: key, Payload: payload})
}

// AddDoc inserts a document entry keyed by id.
func (b *Builder) AddDoc(id uint32, payload []byte) {
	b.Add(EncodeDocKey(id), payload)
}

// Len returns the number of entries added so far.
func (b *Builder) Len() int {
	return len(b.entries)
}

// Build serializes the entries as a balanced tree and returns the chunk bytes
// together with the root node offset.
func (b *Builder) Build() ([]byte, uint32, error) {
	if len(b.entries) == 0 {
		return nil, 0, fmt.Errorf("cannot build empty chunk")
	}
	for _, e := range b.entries {
		if len(e.Key) > MaxKeyLen {
			return nil, 0, fmt.Errorf("key length %d exceeds maximum %d", len(e.Key), MaxKeyLen)
		}
	}
	sorted := make([]Entry, len(b.entries))
	copy(sorted, b.entries)
	sort.Slice(sorted, func(i, j int) bool {
		return CompareKeys(b.keyspace, sorted[i].Key, sorted[j].Key) < 0
	})
	for i := 1; i < len(sorted); i++ {
		if CompareKeys(b.keyspace, sorted[i-1].Key, sorted[i].Key) == 0 {
			return nil, 0, fmt.Errorf("duplicate key %q", sorted[i].Key)
		}
	}

	// First pass: assign node offsets in pre-order (root first, offset 0),
	// then payload offsets after the node region.
	type placed struct {
		entry       int // index into sorted
		off         uint32
		left, right int // indices into nodes, -1 when absent
	}
	var nodes []placed
	var off uint32
	var place func(lo, hi int) int
	place = func(lo, hi int) int {
		if lo >= hi {
			return -1
		}
		mid := lo + (hi-lo)/2
		idx := len(nodes)
		nodes = append(nodes, placed{entry: mid, off: off, left: -1, right: -1})
		off += NodeFixedSize + uint32(len(sorted[mid].Key))
		nodes[idx].left = place(lo, mid)
		nodes[idx].right = place(mid+1, hi)
		return idx
	}
	root := place(0, len(sorted))

	payloadOffs := make([]uint32, len(sorted))
	for i, e := range sorted {
		payloadOffs[i] = off
		off += uint32(len(e.Payload))
	}

	// Second pass: emit nodes then payloads.
	buf := make([]byte, off)
	for _, n := range nodes {
		e := sorted[n.entry]
		p := n.off
		left, right := NoChild, NoChild
		if n.left >= 0 {
			left = nodes[n.left].off
		}
		if n.right >= 0 {
			right = nodes[n.right].off
		}
		binary.LittleEndian.PutUint32(buf[p:], left)
		binary.LittleEndian.PutUint32(buf[p+4:], right)
		binary.LittleEndian.PutUint32(buf[p+8:], payloadOffs[n.entry])
		binary.LittleEndian.PutUint32(buf[p+12:], uint32(len(e.Payload)))
		binary.LittleEndian.PutUint16(buf[p+16:], uint16(len(e.Key)))
		copy(buf[p+NodeFixedSize:], e.Key)
	}
	for i, e := range sorted {
		copy(buf[payloadOffs[i]:], e.Payload)
	}

	return buf, nodes[root].off, nil
}

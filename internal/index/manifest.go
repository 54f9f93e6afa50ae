// Package index holds the resident routing tables (manifests) produced by
// the offline build: one for the term keyspace and one for the document-id
// keyspace. A manifest maps a key to the chunk that would contain it, plus
// that chunk's internal tree root offset. Manifests are loaded once at
// startup and never change while the process runs.
package index

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// ChunkRef identifies a chunk and the root offset of its search tree.
type ChunkRef struct {
	ChunkID    uint32 `json:"chunk_id"`
	RootOffset uint32 `json:"root_offset"`
}

// TermRange is one term-keyspace manifest entry: the chunk holding every
// indexed term in [First, Last].
type TermRange struct {
	First string `json:"first"`
	Last  string `json:"last"`
	ChunkRef
}

// DocRange is one doc-keyspace manifest entry covering ids in [First, Last].
type DocRange struct {
	First uint32 `json:"first"`
	Last  uint32 `json:"last"`
	ChunkRef
}

// TermManifest routes terms to chunks.
type TermManifest struct {
	Ranges []TermRange `json:"ranges"`
}

// DocManifest routes document ids to chunks. It also defines the document-id
// universe used for exclude-only queries.
type DocManifest struct {
	Ranges []DocRange `json:"ranges"`

	universeOnce sync.Once
	universe     []byte
	universeErr  error
}

// ParseTermManifest decodes and validates a term manifest.
func ParseTermManifest(data []byte) (*TermManifest, error) {
	var m TermManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing term manifest: %w", err)
	}
	for i, r := range m.Ranges {
		if r.Last < r.First {
			return nil, fmt.Errorf("term manifest range %d inverted: %q > %q", i, r.First, r.Last)
		}
		if i > 0 && m.Ranges[i-1].Last >= r.First {
			return nil, fmt.Errorf("term manifest ranges %d and %d overlap or are unsorted", i-1, i)
		}
	}
	return &m, nil
}

// ParseDocManifest decodes and validates a doc manifest.
func ParseDocManifest(data []byte) (*DocManifest, error) {
	var m DocManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing doc manifest: %w", err)
	}
	for i, r := range m.Ranges {
		if r.Last < r.First {
			return nil, fmt.Errorf("doc manifest range %d inverted: %d > %d", i, r.First, r.Last)
		}
		if i > 0 && m.Ranges[i-1].Last >= r.First {
			return nil, fmt.Errorf("doc manifest ranges %d and %d overlap or are unsorted", i-1, i)
		}
	}
	return &m, nil
}

// Locate returns the chunk covering term, or false when the term falls
// outside every known range.
func (m *TermManifest) Locate(term string) (ChunkRef, bool) {
	i := sort.Search(len(m.Ranges), func(i int) bool {
		return m.Ranges[i].Last >= term
	})
	if i == len(m.Ranges) || m.Ranges[i].First > term {
		return ChunkRef{}, false
	}
	return m.Ranges[i].ChunkRef, true
}

// Locate returns the chunk covering id, or false when the id falls outside
// every known range.
func (m *DocManifest) Locate(id uint32) (ChunkRef, bool) {
	i := sort.Search(len(m.Ranges), func(i int) bool {
		return m.Ranges[i].Last >= id
	})
	if i == len(m.Ranges) || m.Ranges[i].First > id {
		return ChunkRef{}, false
	}
	return m.Ranges[i].ChunkRef, true
}

// Universe returns the serialized bitmap of every document id the manifest
// covers. Computed once; the manifest is immutable after load.
func (m *DocManifest) Universe() ([]byte, error) {
	m.universeOnce.Do(func() {
		bm := roaring.New()
		for _, r := range m.Ranges {
			bm.AddRange(uint64(r.First), uint64(r.Last)+1)
		}
		m.universe, m.universeErr = bm.MarshalBinary()
	})
	return m.universe, m.universeErr
}

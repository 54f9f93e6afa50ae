package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgequery/edgequery/internal/chunk"
	"github.com/edgequery/edgequery/internal/engine"
	"github.com/edgequery/edgequery/internal/index"
	"github.com/edgequery/edgequery/internal/store"
	"github.com/edgequery/edgequery/pkg/metrics"
)

// Resolver composes the chunk locator, the blob store, and the engine's
// chunk search into key→payload resolution for both keyspaces. All distinct
// chunks needed by one resolution round are fetched concurrently; engine
// calls stay sequential, since the arena is single-threaded per request.
type Resolver struct {
	store      store.BlobStore
	terms      *index.TermManifest
	docs       *index.DocManifest
	termPrefix string
	docPrefix  string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewResolver creates a Resolver over the given manifests and store.
func NewResolver(bs store.BlobStore, terms *index.TermManifest, docs *index.DocManifest, termPrefix, docPrefix string, m *metrics.Metrics) *Resolver {
	return &Resolver{
		store:      bs,
		terms:      terms,
		docs:       docs,
		termPrefix: termPrefix,
		docPrefix:  docPrefix,
		metrics:    m,
		logger:     slog.Default().With("component", "resolver"),
	}
}

// fetchChunks retrieves every listed chunk concurrently. A store failure
// fails the whole round; missing chunk keys are infrastructure failures too,
// since the manifest routed a key there.
func (r *Resolver) fetchChunks(ctx context.Context, ks chunk.Keyspace, prefix string, ids []uint32) (map[uint32][]byte, error) {
	chunks := make(map[uint32][]byte, len(ids))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			start := time.Now()
			data, err := r.store.Fetch(gctx, store.ChunkKey(prefix, id))
			if r.metrics != nil {
				r.metrics.ChunkFetchDuration.WithLabelValues(ks.String()).Observe(time.Since(start).Seconds())
				outcome := "ok"
				if err != nil {
					outcome = "error"
				}
				r.metrics.ChunkFetchesTotal.WithLabelValues(ks.String(), outcome).Inc()
			}
			if err != nil {
				return err
			}
			if r.metrics != nil {
				r.metrics.ChunkBytesFetched.WithLabelValues(ks.String()).Add(float64(len(data)))
			}
			mu.Lock()
			chunks[id] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// loadedChunk is a chunk copied into engine memory.
type loadedChunk struct {
	ref  uint32
	size uint32
	root uint32
}

// loadChunks moves fetched chunk bytes into the engine arena, once per chunk.
func loadChunks(eng *engine.Engine, fetched map[uint32][]byte, roots map[uint32]uint32) (map[uint32]loadedChunk, error) {
	loaded := make(map[uint32]loadedChunk, len(fetched))
	for id, data := range fetched {
		ref, err := eng.Load(data)
		if err != nil {
			return nil, err
		}
		loaded[id] = loadedChunk{ref: ref, size: uint32(len(data)), root: roots[id]}
	}
	return loaded, nil
}

// ResolveTerms resolves each distinct term to its postings bitmap inside
// engine memory. Terms absent from the manifest or from their chunk are
// simply missing from the returned map; both are the same soft miss to the
// caller.
func (r *Resolver) ResolveTerms(ctx context.Context, eng *engine.Engine, terms []string) (map[string]engine.BitmapRef, error) {
	located := make(map[string]index.ChunkRef, len(terms))
	roots := make(map[uint32]uint32)
	var chunkIDs []uint32
	for _, t := range terms {
		if _, done := located[t]; done {
			continue
		}
		ref, ok := r.terms.Locate(t)
		if !ok {
			if r.metrics != nil {
				r.metrics.ChunkFetchesTotal.WithLabelValues(chunk.KeyspaceTerm.String(), "miss").Inc()
			}
			continue
		}
		located[t] = ref
		if _, seen := roots[ref.ChunkID]; !seen {
			chunkIDs = append(chunkIDs, ref.ChunkID)
			roots[ref.ChunkID] = ref.RootOffset
		}
	}

	fetched, err := r.fetchChunks(ctx, chunk.KeyspaceTerm, r.termPrefix, chunkIDs)
	if err != nil {
		return nil, err
	}
	loaded, err := loadChunks(eng, fetched, roots)
	if err != nil {
		return nil, err
	}

	resolved := make(map[string]engine.BitmapRef, len(located))
	for term, ref := range located {
		lc := loaded[ref.ChunkID]
		payloadRef, payloadLen, ok, err := eng.Search(lc.ref, lc.size, lc.root, chunk.KeyspaceTerm, []byte(term))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		resolved[term] = engine.BitmapRef{Ref: payloadRef, Len: payloadLen}
	}
	return resolved, nil
}

// ResolveDocs resolves a page of document ids to their stored JSON bytes,
// preserving input order. Ids that no longer resolve are dropped: the result
// was computed against a snapshot that may not contain them anymore.
func (r *Resolver) ResolveDocs(ctx context.Context, eng *engine.Engine, ids []uint32) ([][]byte, error) {
	located := make(map[uint32]index.ChunkRef, len(ids))
	roots := make(map[uint32]uint32)
	var chunkIDs []uint32
	for _, id := range ids {
		if _, done := located[id]; done {
			continue
		}
		ref, ok := r.docs.Locate(id)
		if !ok {
			if r.metrics != nil {
				r.metrics.ChunkFetchesTotal.WithLabelValues(chunk.KeyspaceDoc.String(), "miss").Inc()
			}
			continue
		}
		located[id] = ref
		if _, seen := roots[ref.ChunkID]; !seen {
			chunkIDs = append(chunkIDs, ref.ChunkID)
			roots[ref.ChunkID] = ref.RootOffset
		}
	}

	fetched, err := r.fetchChunks(ctx, chunk.KeyspaceDoc, r.docPrefix, chunkIDs)
	if err != nil {
		return nil, err
	}
	loaded, err := loadChunks(eng, fetched, roots)
	if err != nil {
		return nil, err
	}

	docs := make([][]byte, 0, len(ids))
	for _, id := range ids {
		ref, ok := located[id]
		if !ok {
			continue
		}
		lc := loaded[ref.ChunkID]
		payloadRef, payloadLen, ok, err := eng.Search(lc.ref, lc.size, lc.root, chunk.KeyspaceDoc, chunk.EncodeDocKey(id))
		if err != nil {
			return nil, err
		}
		if !ok {
			r.logger.Debug("document vanished from snapshot", "doc_id", id)
			continue
		}
		view, err := eng.Bytes(payloadRef, payloadLen)
		if err != nil {
			return nil, err
		}
		// Copy out of the arena: the page outlives the engine's return to
		// the pool.
		doc := make([]byte, len(view))
		copy(doc, view)
		docs = append(docs, doc)
	}
	return docs, nil
}

package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edgequery/edgequery/internal/engine"
	"github.com/edgequery/edgequery/internal/index"
	"github.com/edgequery/edgequery/internal/store"
	"github.com/edgequery/edgequery/pkg/config"
	errs "github.com/edgequery/edgequery/pkg/errors"
	"github.com/edgequery/edgequery/pkg/metrics"
)

// Outcome classifies how a query was answered, for metrics and analytics.
type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeDefault      Outcome = "default"
	OutcomeShortCircuit Outcome = "short_circuit"
)

// Page is a fully-materialized result page, ready for assembly. Exactly one
// of Docs or DefaultRaw is meaningful: DefaultRaw carries the pre-serialized
// default snapshot array when the effective query was empty.
type Page struct {
	Total      uint32
	Next       *uint32
	Docs       [][]byte
	DefaultRaw []byte
	Outcome    Outcome
}

// Service runs the full per-request pipeline: engine acquisition and reset,
// parallel bitmap resolution, boolean evaluation, and parallel document
// resolution.
type Service struct {
	resolver   *Resolver
	engines    *engine.Pool
	store      store.BlobStore
	docs       *index.DocManifest
	defaultKey string
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewService wires the pipeline together.
func NewService(resolver *Resolver, engines *engine.Pool, bs store.BlobStore, docs *index.DocManifest, cfg config.IndexConfig, m *metrics.Metrics) *Service {
	return &Service{
		resolver:   resolver,
		engines:    engines,
		store:      bs,
		docs:       docs,
		defaultKey: cfg.DefaultKey,
		metrics:    m,
		logger:     slog.Default().With("component", "search-service"),
	}
}

// Search executes a parsed query and returns its result page.
//
// Resolution policy, applied before the evaluator runs:
//   - any Require term that fails to resolve short-circuits to zero results;
//   - Contain and Exclude terms that fail to resolve are dropped;
//   - a query whose effective term set is empty returns the precomputed
//     default snapshot;
//   - an exclude-only query gets the document-id universe injected as its
//     positive set.
func (s *Service) Search(ctx context.Context, q *ParsedQuery) (*Page, error) {
	if q.TermCount() == 0 {
		return s.defaultPage(ctx)
	}

	eng := s.engines.Get()
	defer s.engines.Put(eng)

	distinct := make([]string, 0, q.TermCount())
	distinct = append(distinct, q.Require...)
	distinct = append(distinct, q.Contain...)
	distinct = append(distinct, q.Exclude...)

	resolved, err := s.resolver.ResolveTerms(ctx, eng, distinct)
	if err != nil {
		return nil, err
	}

	var require, contain, exclude []engine.BitmapRef
	for _, t := range q.Require {
		ref, ok := resolved[t]
		if !ok {
			// A required term absent from the index can never match.
			s.logger.Debug("require term unresolved, short-circuiting", "term", t)
			return &Page{Total: 0, Outcome: OutcomeShortCircuit}, nil
		}
		require = append(require, ref)
	}
	for _, t := range q.Contain {
		if ref, ok := resolved[t]; ok {
			contain = append(contain, ref)
		}
	}
	for _, t := range q.Exclude {
		if ref, ok := resolved[t]; ok {
			exclude = append(exclude, ref)
		}
	}

	if len(require) == 0 && len(contain) == 0 && len(exclude) == 0 {
		return s.defaultPage(ctx)
	}
	if len(require) == 0 && len(contain) == 0 {
		// Exclude-only: the positive set is every document the index knows.
		universe, err := s.docs.Universe()
		if err != nil {
			return nil, fmt.Errorf("%w: building universe bitmap: %v", errs.ErrInternal, err)
		}
		ref, err := eng.Load(universe)
		if err != nil {
			return nil, err
		}
		require = append(require, engine.BitmapRef{Ref: ref, Len: uint32(len(universe))})
	}

	inputRef, err := eng.BuildQueryInput(q.Cursor, require, contain, exclude)
	if err != nil {
		return nil, err
	}
	resultRef, err := eng.ExecuteQuery(inputRef)
	if err != nil {
		return nil, err
	}
	result, err := eng.DecodeResult(resultRef)
	if err != nil {
		return nil, err
	}

	docs, err := s.resolver.ResolveDocs(ctx, eng, result.PageDocIDs)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.PageResultCount.Observe(float64(len(docs)))
	}
	return &Page{
		Total:   result.TotalMatches,
		Next:    result.NextCursor,
		Docs:    docs,
		Outcome: OutcomeOK,
	}, nil
}

// defaultPage serves the cached top-N snapshot for effectively empty queries.
func (s *Service) defaultPage(ctx context.Context) (*Page, error) {
	raw, err := s.store.Fetch(ctx, s.defaultKey)
	if err != nil {
		return nil, fmt.Errorf("fetching default snapshot: %w", err)
	}
	return &Page{DefaultRaw: raw, Outcome: OutcomeDefault}, nil
}

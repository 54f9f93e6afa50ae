// Package store abstracts the key-value blob store holding chunk bytes,
// manifests, and the default-results snapshot. Fetches are per-request and
// uncached: chunk data is immutable, the edge runtime is memory-constrained,
// and a miss can never be fixed by retrying, so none of the backends retry.
package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/edgequery/edgequery/pkg/config"
	errs "github.com/edgequery/edgequery/pkg/errors"
)

// BlobStore fetches immutable blobs by key. A missing key is reported as
// pkg/errors.ErrNotFound; every other failure is infrastructure and
// propagates as a hard failure.
type BlobStore interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// ChunkKey composes the storage key of a chunk: `{prefix}{chunkId}`.
func ChunkKey(prefix string, chunkID uint32) string {
	return prefix + strconv.FormatUint(uint64(chunkID), 10)
}

// New constructs the configured blob-store backend.
func New(cfg config.StoreConfig) (BlobStore, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemory(), nil
	case "redis":
		return NewRedis(cfg.Redis)
	case "postgres":
		return NewPostgres(cfg.Postgres)
	case "s3":
		return NewS3(cfg.S3)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", errs.ErrInternal, cfg.Backend)
	}
}

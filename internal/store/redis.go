package store

import (
	"context"
	"fmt"

	"github.com/edgequery/edgequery/pkg/config"
	errs "github.com/edgequery/edgequery/pkg/errors"
	pkgredis "github.com/edgequery/edgequery/pkg/redis"
)

// Redis serves blobs from Redis string keys.
type Redis struct {
	client *pkgredis.Client
}

// NewRedis connects to Redis and returns the backend.
func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	client, err := pkgredis.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return &Redis{client: client}, nil
}

// Fetch returns the blob stored under key.
func (r *Redis) Fetch(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.GetBytes(ctx, key)
	if err != nil {
		if pkgredis.IsNilError(err) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: fetching %s: %v", errs.ErrStoreUnavailable, key, err)
	}
	return data, nil
}

// Ping verifies the connection, for readiness checks.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

// Close closes the underlying connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

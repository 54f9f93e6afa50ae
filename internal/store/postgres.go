package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edgequery/edgequery/pkg/config"
	errs "github.com/edgequery/edgequery/pkg/errors"
	"github.com/edgequery/edgequery/pkg/postgres"
)

// Postgres serves blobs from a single key/value table:
//
//	CREATE TABLE blobs (key TEXT PRIMARY KEY, data BYTEA NOT NULL);
type Postgres struct {
	client *postgres.Client
	table  string
}

// NewPostgres connects to PostgreSQL and returns the backend.
func NewPostgres(cfg config.PostgresConfig) (*Postgres, error) {
	client, err := postgres.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return &Postgres{client: client, table: cfg.Table}, nil
}

// Fetch returns the blob stored under key.
func (p *Postgres) Fetch(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf("SELECT data FROM %s WHERE key = $1", p.table)
	var data []byte
	if err := p.client.DB.QueryRowContext(ctx, query, key).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("%w: fetching %s: %v", errs.ErrStoreUnavailable, key, err)
	}
	return data, nil
}

// Ping verifies the connection, for readiness checks.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	return p.client.Close()
}

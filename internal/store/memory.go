package store

import (
	"context"
	"sync"

	errs "github.com/edgequery/edgequery/pkg/errors"
)

// Memory is an in-memory BlobStore used by tests and fixtures.
// Thread-safe for concurrent reads and writes.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemory creates an empty in-memory blob store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// Put stores a copy of data under key.
func (m *Memory) Put(key string, data []byte) {
	copied := make([]byte, len(data))
	copy(copied, data)
	m.mu.Lock()
	m.blobs[key] = copied
	m.mu.Unlock()
}

// Fetch returns a copy of the blob stored under key.
func (m *Memory) Fetch(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, errs.ErrNotFound
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}

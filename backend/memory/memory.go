// Package memory is an in-memory backend.Backend used by tests,
// cmd/bench, and the demo server in cmd/cachenode. It has no durability
// of its own — state is lost on process exit — which is fine for a
// stand-in whose only job is to exercise the cache engine's backend
// collaborator contract.
package memory

import (
	"context"
	"sync"

	"github.com/shardnode/cachekit/backend"
)

// Backend is a map-backed backend.Backend guarded by a single mutex.
type Backend struct {
	mu   sync.RWMutex
	rows map[string]backend.Record
}

// New constructs an empty in-memory backend.
func New() *Backend {
	return &Backend{rows: make(map[string]backend.Record)}
}

// Read implements backend.Backend.
func (b *Backend) Read(_ context.Context, id []byte) (backend.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	rec, ok := b.rows[string(id)]
	if !ok {
		return backend.Record{}, backend.ErrNotFound
	}
	// Defensive copy: callers must not be able to mutate our stored payload
	// through the returned slice.
	out := rec
	out.Payload = append([]byte(nil), rec.Payload...)
	return out, nil
}

// Write implements backend.Backend.
func (b *Backend) Write(_ context.Context, id []byte, rec backend.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	stored := rec
	stored.Payload = append([]byte(nil), rec.Payload...)
	b.rows[string(id)] = stored
	return nil
}

// Remove implements backend.Backend.
func (b *Backend) Remove(_ context.Context, id []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.rows[string(id)]; !ok {
		return backend.ErrNotFound
	}
	delete(b.rows, string(id))
	return nil
}

// Len reports the number of rows currently stored, for tests.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rows)
}

// Package backend declares the durable-store adapter the cache engine
// populates from and flushes to. It is deliberately decoupled from the
// cache package's Identifier type (it takes raw byte keys) so cache can
// depend on backend without backend depending on cache.
package backend

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Read and Remove when the key has no row in
// the backend. Populate-from-disk and delete-cascade treat it as a
// non-error miss rather than propagating it.
var ErrNotFound = errors.New("backend: not found")

// Record is the durable-store row returned by Read and accepted by Write:
// a payload plus the opaque timestamp/user-flags pair carried alongside it.
type Record struct {
	Payload   []byte
	Sec       int64
	Nsec      int64
	UserFlags uint64
}

// Backend is the durable store collaborator: populate-on-miss, async
// flush, and TTL/delete-triggered removal. Implementations must be safe
// for concurrent use — the engine calls Read/Write/Remove for different
// shards from different goroutines, and under the teacher's accepted
// "backend I/O under the shard lock" trade-off, a slow call stalls only
// the shard that issued it.
type Backend interface {
	// Read fetches the current row for id. It returns ErrNotFound if the
	// key is absent.
	Read(ctx context.Context, id []byte) (Record, error)

	// Write durably stores rec under id, replacing any existing row.
	Write(ctx context.Context, id []byte, rec Record) error

	// Remove deletes the row for id. It returns ErrNotFound if the key
	// was already absent.
	Remove(ctx context.Context, id []byte) error
}

package cache

import (
	"context"
	"sync/atomic"

	"github.com/shardnode/cachekit/backend/memory"
	"github.com/shardnode/cachekit/internal/invariant"
	"github.com/shardnode/cachekit/internal/util"
)

// Engine is the cache manager's external surface: the three commands the
// dispatcher issues, plus graceful shutdown. NewManager returns a
// NoOpEngine instead of a *Manager when Options.TotalBytes is 0.
type Engine interface {
	Write(ctx context.Context, id Identifier, attr *IOAttr, payload []byte) error
	Read(ctx context.Context, id Identifier, attr *IOAttr) (*Snapshot, error)
	Delete(ctx context.Context, id Identifier, attr *IOAttr) error
	Shutdown(ctx context.Context) error
}

// Manager owns a fixed number of independent shards and routes every
// command to exactly one of them by the identifier's leading bytes; no
// cross-shard state exists at steady state.
type Manager struct {
	shards []*shard
	closed atomic.Bool
}

// NewManager constructs the cache engine described by opt. A TotalBytes
// of 0 disables the cache entirely and returns a NoOpEngine instead of a
// *Manager, matching spec.md §6's "0 disables the cache entirely".
func NewManager(opt Options) (Engine, error) {
	opt.setDefaults()
	if opt.Shards <= 0 {
		// setDefaults is the only place that coerces Shards <= 0 (the
		// documented zero-value meaning "use the default"), so by this
		// point it must already have replaced it with a positive count;
		// seeing one here means that contract broke, not that the caller
		// passed a bad value.
		invariant.Raise(opt.Logger, "manager.shards_positive", "shards", opt.Shards)
		opt.Shards = 16
	}
	if opt.TotalBytes == 0 {
		return NoOpEngine{}, nil
	}
	if opt.Backend == nil {
		opt.Backend = memory.New()
	}

	perShard := opt.TotalBytes / int64(opt.Shards)
	m := &Manager{shards: make([]*shard, opt.Shards)}
	for i := range m.shards {
		m.shards[i] = newShard(i, perShard, opt)
	}
	return m, nil
}

func (m *Manager) shardFor(id Identifier) *shard {
	return m.shards[util.RouteShard(id[:], len(m.shards))]
}

// Write implements Engine.
func (m *Manager) Write(ctx context.Context, id Identifier, attr *IOAttr, payload []byte) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return m.shardFor(id).write(ctx, id, attr, payload)
}

// Read implements Engine.
func (m *Manager) Read(ctx context.Context, id Identifier, attr *IOAttr) (*Snapshot, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	return m.shardFor(id).read(ctx, id, attr)
}

// Delete implements Engine.
func (m *Manager) Delete(ctx context.Context, id Identifier, attr *IOAttr) error {
	if m.closed.Load() {
		return ErrClosed
	}
	return m.shardFor(id).delete(ctx, id, attr)
}

// Shutdown signals every shard's maintenance worker to stop, joins them,
// then forces each shard's budget to zero and drains it so every
// remaining dirty entry is flushed before memory is released — even
// though the pre-shutdown budget might otherwise have let resize stop
// early. Once Shutdown has run, every subsequent command returns
// ErrClosed instead of touching shard state. Safe to call more than once;
// only the first call does any work.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, s := range m.shards {
		s.stop()
	}
	for _, s := range m.shards {
		s.drain(ctx)
	}
	return nil
}

// NoOpEngine is the cache engine with TotalBytes == 0: Write/Read always
// decline, Delete is a no-op success, matching a disabled cache exactly.
type NoOpEngine struct{}

func (NoOpEngine) Write(context.Context, Identifier, *IOAttr, []byte) error { return ErrNotSupported }
func (NoOpEngine) Read(context.Context, Identifier, *IOAttr) (*Snapshot, error) {
	return nil, ErrNotFound
}
func (NoOpEngine) Delete(context.Context, Identifier, *IOAttr) error { return nil }
func (NoOpEngine) Shutdown(context.Context) error                   { return nil }

var (
	_ Engine = (*Manager)(nil)
	_ Engine = NoOpEngine{}
)

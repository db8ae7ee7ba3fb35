package cache

import (
	"log/slog"
	"time"

	"github.com/shardnode/cachekit/backend"
	"github.com/shardnode/cachekit/digest"
)

// Clock provides the current time; useful for deterministic TTL/sync
// tests. Nil in Options defaults to the real wall clock.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Options configures the cache manager. Zero values are safe: sane
// defaults are applied in NewManager.
//   - TotalBytes == 0  => the engine runs as a NoOpEngine (cache disabled)
//   - Shards <= 0      => 16
//   - SyncTimeout <= 0 => 5s
//   - MaintenanceInterval <= 0 => 1s
//   - nil Backend      => an in-memory backend.memory.Backend
//   - nil Digest       => digest.XXHash64
//   - nil Metrics      => NoopMetrics
//   - nil Clock        => the real wall clock
//   - nil Logger       => slog.Default()
type Options struct {
	// TotalBytes is the total RAM budget split evenly across shards.
	TotalBytes int64

	// Shards is the shard count.
	Shards int

	// SyncTimeout is the delay from first dirtying write to scheduled
	// flush deadline.
	SyncTimeout time.Duration

	// MaintenanceInterval is the maintenance worker's wake cadence.
	MaintenanceInterval time.Duration

	Backend backend.Backend
	Digest  digest.Digest
	Metrics Metrics
	Clock   Clock
	Logger  *slog.Logger
}

func (o *Options) setDefaults() {
	if o.Shards <= 0 {
		o.Shards = 16
	}
	if o.SyncTimeout <= 0 {
		o.SyncTimeout = 5 * time.Second
	}
	if o.MaintenanceInterval <= 0 {
		o.MaintenanceInterval = time.Second
	}
	if o.Digest == nil {
		o.Digest = digest.XXHash64{}
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

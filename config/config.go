// Package config loads cache.Options from command-line flags, the way
// nobletooth-kiwi/pkg/config/flags.go and the teacher's cmd/bench/main.go
// both build their runtime configuration.
package config

import (
	"flag"
	"time"

	"github.com/shardnode/cachekit/cache"
)

var (
	totalBytes          = flag.Int64("cache_total_bytes", 0, "total RAM budget across shards; 0 disables the cache")
	shards              = flag.Int("cache_shards", 16, "number of cache shards")
	syncTimeoutSeconds  = flag.Int64("cache_sync_timeout_seconds", 5, "delay from first dirtying write to scheduled flush")
	maintenanceInterval = flag.Duration("cache_maintenance_interval", time.Second, "maintenance worker wake cadence")
)

// Load parses the registered flags (if not already parsed) and returns
// the cache.Options they describe. Callers fill in the collaborator
// fields (Backend, Digest, Metrics, Clock, Logger) that flags cannot
// express.
func Load() cache.Options {
	if !flag.Parsed() {
		flag.Parse()
	}
	return cache.Options{
		TotalBytes:          *totalBytes,
		Shards:              *shards,
		SyncTimeout:         time.Duration(*syncTimeoutSeconds) * time.Second,
		MaintenanceInterval: *maintenanceInterval,
	}
}

// SetTestFlag overrides a flag's value for the duration of a test,
// restoring the previous value via t.Cleanup. Mirrors the teacher's
// internal test helper for flag-driven configuration.
func SetTestFlag(t interface {
	Cleanup(func())
	Fatalf(format string, args ...any)
}, name, value string) {
	f := flag.Lookup(name)
	if f == nil {
		t.Fatalf("config.SetTestFlag: unknown flag %q", name)
		return
	}
	prev := f.Value.String()
	if err := f.Value.Set(value); err != nil {
		t.Fatalf("config.SetTestFlag(%q, %q): %v", name, value, err)
		return
	}
	t.Cleanup(func() { _ = f.Value.Set(prev) })
}

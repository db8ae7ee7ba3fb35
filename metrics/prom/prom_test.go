package prom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shardnode/cachekit/cache"
)

func TestAdapterImplementsMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	a := New(reg, "test", "cache", nil)

	a.Hit()
	a.Miss()
	a.Evict(cache.EvictTTL)
	a.Evict(cache.EvictCapacity)
	a.DirtyEntries(0, 1)
	a.DirtyEntries(0, -1)
	a.UsedBytes(0, 1234)
	a.FlushFailure()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected registered metric families")
	}
}

package cache

import (
	"context"
	"math/rand"
	"runtime"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shardnode/cachekit/backend/memory"
)

// A mixed workload of concurrent Write/Read/Delete on random keys across
// many shards. Should pass under `-race` without detector reports.
func TestRaceMixedWorkload(t *testing.T) {
	eng, err := NewManager(Options{
		TotalBytes:          8 << 20,
		Shards:              32,
		SyncTimeout:         50 * time.Millisecond,
		MaintenanceInterval: 10 * time.Millisecond,
		Backend:             memory.New(),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m := eng.(*Manager)
	t.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	workers := 4 * runtime.GOMAXPROCS(0)
	if workers < 4 {
		workers = 4
	}
	keyspace := 256
	deadline := time.Now().Add(1 * time.Second)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			r := rand.New(rand.NewSource(int64(w) * 9973))
			for time.Now().Before(deadline) {
				id := mkID(byte(r.Intn(keyspace)))
				attr := &IOAttr{Size: 8, Flags: FlagCache}
				switch r.Intn(10) {
				case 0:
					_ = m.Delete(context.Background(), id, &IOAttr{})
				case 1, 2:
					attr.Flags |= FlagCacheOnly
					_ = m.Write(context.Background(), id, attr, make([]byte, 8))
				default:
					_, _ = m.Read(context.Background(), id, attr)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
}

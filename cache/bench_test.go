package cache

import (
	"context"
	"math/rand"
	"sync/atomic"
	"testing"

	"github.com/shardnode/cachekit/backend/memory"
)

// benchmarkMix exercises a read/write mix against a warm cache. It uses
// parallel workers (RunParallel spawns GOMAXPROCS goroutines).
func benchmarkMix(b *testing.B, readsPct int) {
	eng, err := NewManager(Options{TotalBytes: 256 << 20, Shards: 32, Backend: memory.New()})
	if err != nil {
		b.Fatalf("NewManager: %v", err)
	}
	m := eng.(*Manager)
	b.Cleanup(func() { _ = m.Shutdown(context.Background()) })

	ctx := context.Background()
	keyMask := (1 << 16) - 1 // hot keyspace (power of two for fast &-mask)

	// Preload half the keyspace to get a realistic hit-rate.
	for i := 0; i <= keyMask/2; i++ {
		id := mkID(byte(i))
		id[1] = byte(i >> 8)
		_ = m.Write(ctx, id, &IOAttr{Size: 1, Flags: FlagCache | FlagCacheOnly}, []byte("v"))
	}

	b.ReportAllocs()
	b.ResetTimer()

	var seed int64 = 1
	b.RunParallel(func(pb *testing.PB) {
		r := rand.New(rand.NewSource(atomic.AddInt64(&seed, 1)))
		i := 0
		for pb.Next() {
			var id Identifier
			id[0] = byte(i & keyMask)
			id[1] = byte((i & keyMask) >> 8)
			if r.Intn(100) < readsPct {
				_, _ = m.Read(ctx, id, &IOAttr{Flags: FlagCache | FlagCacheOnly})
			} else {
				_ = m.Write(ctx, id, &IOAttr{Size: 1, Flags: FlagCache | FlagCacheOnly}, []byte("v"))
			}
			i++
		}
	})
}

func BenchmarkCache_90r10w(b *testing.B) { benchmarkMix(b, 90) }
func BenchmarkCache_50r50w(b *testing.B) { benchmarkMix(b, 50) }

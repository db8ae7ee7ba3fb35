// Command bench runs a synthetic workload against the cache engine and
// exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shardnode/cachekit/cache"
	"github.com/shardnode/cachekit/backend/memory"
	pmet "github.com/shardnode/cachekit/metrics/prom"
)

func main() {
	// ---- Flags ----
	var (
		entryBytes = flag.Int("entry_bytes", 64, "approximate size of a benchmark value, in bytes")
		capacity   = flag.Int("cap", 100_000, "cache capacity (entries, converted to a byte budget via entry_bytes)")
		shards     = flag.Int("shards", 0, "number of shards (0 = default of 16)")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = cap/2)")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "cachekit", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build cache ----
	engine, err := cache.NewManager(cache.Options{
		TotalBytes: int64(*capacity) * int64(*entryBytes),
		Shards:     *shards,
		Backend:    memory.New(),
		Metrics:    metrics,
	})
	if err != nil {
		log.Fatalf("cache.NewManager: %v", err)
	}
	defer func() { _ = engine.Shutdown(context.Background()) }()

	value := make([]byte, *entryBytes)
	for i := range value {
		value[i] = byte('a' + i%26)
	}

	ctx := context.Background()
	writeAttr := &cache.IOAttr{Size: uint64(*entryBytes), Flags: cache.FlagCache | cache.FlagCacheOnly}
	readAttr := &cache.IOAttr{Flags: cache.FlagCache | cache.FlagCacheOnly}

	// ---- Preload half capacity to get a realistic hit-rate ----
	pl := *preload
	if pl == 0 {
		pl = *capacity / 2
	}
	for i := 0; i < pl; i++ {
		_ = engine.Write(ctx, keyID(uint64(i)), writeAttr, value)
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysMax := uint64(*keys - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, writes, hits, misses, total uint64
	runCtx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)

			for {
				select {
				case <-runCtx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				key := keyID(localZipf.Uint64())
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					if _, err := engine.Read(ctx, key, readAttr); err == nil {
						atomic.AddUint64(&hits, 1)
					} else {
						atomic.AddUint64(&misses, 1)
					}
				} else {
					atomic.AddUint64(&writes, 1)
					_ = engine.Write(ctx, key, writeAttr, value)
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	readsN := atomic.LoadUint64(&reads)
	writesN := atomic.LoadUint64(&writes)
	hitsN := atomic.LoadUint64(&hits)
	missesN := atomic.LoadUint64(&misses)

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	fmt.Printf("cap=%d entry_bytes=%d shards=%d workers=%d keys=%d dur=%v seed=%d\n",
		*capacity, *entryBytes, *shards, workersN, *keys, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writesN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
}

// keyID maps a Zipf-distributed uint64 key onto a fixed-width Identifier.
func keyID(k uint64) cache.Identifier {
	var id cache.Identifier
	binary.LittleEndian.PutUint64(id[:8], k)
	return id
}

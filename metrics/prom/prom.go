// Package prom adapts cache.Metrics onto Prometheus counters and gauges.
package prom

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shardnode/cachekit/cache"
)

// Adapter implements cache.Metrics and exports Prometheus counters/gauges.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	hits         prometheus.Counter
	misses       prometheus.Counter
	evicts       *prometheus.CounterVec
	flushFails   prometheus.Counter
	dirtyEntries *prometheus.GaugeVec
	usedBytes    *prometheus.GaugeVec
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "hits_total",
			Help:        "Cache reads that found the key resident.",
			ConstLabels: constLabels,
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "misses_total",
			Help:        "Cache reads that did not find the key resident.",
			ConstLabels: constLabels,
		}),
		evicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "evictions_total",
				Help:        "Entries removed by eviction, by reason.",
				ConstLabels: constLabels,
			},
			[]string{"reason"},
		),
		flushFails: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "flush_failures_total",
			Help:        "Backend write errors encountered while flushing dirty entries.",
			ConstLabels: constLabels,
		}),
		dirtyEntries: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "dirty_entries",
				Help:        "Entries currently scheduled for flush, by shard.",
				ConstLabels: constLabels,
			},
			[]string{"shard"},
		),
		usedBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   sub,
				Name:        "used_bytes",
				Help:        "Payload bytes currently resident, by shard.",
				ConstLabels: constLabels,
			},
			[]string{"shard"},
		),
	}
	reg.MustRegister(a.hits, a.misses, a.evicts, a.flushFails, a.dirtyEntries, a.usedBytes)
	return a
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *Adapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(reason(r)).Inc()
}

// FlushFailure increments the flush-failure counter.
func (a *Adapter) FlushFailure() { a.flushFails.Inc() }

// DirtyEntries adjusts the dirty-entries gauge for the given shard by delta.
func (a *Adapter) DirtyEntries(shard int, delta int) {
	a.dirtyEntries.WithLabelValues(strconv.Itoa(shard)).Add(float64(delta))
}

// UsedBytes sets the used-bytes gauge for the given shard.
func (a *Adapter) UsedBytes(shard int, n int64) {
	a.usedBytes.WithLabelValues(strconv.Itoa(shard)).Set(float64(n))
}

// reason maps EvictReason to a stable label value.
func reason(r cache.EvictReason) string {
	switch r {
	case cache.EvictTTL:
		return "ttl"
	case cache.EvictCapacity:
		return "capacity"
	default:
		return "unknown"
	}
}

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)

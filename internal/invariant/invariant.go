// Package invariant reports conditions that must never happen — state
// corruption bugs, not user errors — the way nobletooth-kiwi's utils
// package does: a Prometheus counter plus a structured log line, and a
// hard panic when TestMode is set so a broken invariant fails the test
// suite loudly instead of limping on with corrupted shard state.
package invariant

import (
	"log/slog"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
)

// TestMode switches Raise from log-and-continue to log-and-panic. It is
// false by default; a test binary opts in by setting it (for example in a
// TestMain or init()).
var TestMode atomic.Bool

var violations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "cachekit",
		Name:      "invariant_violations_total",
		Help:      "Count of cache invariant violations detected at runtime, by check name.",
	},
	[]string{"check"},
)

func init() {
	prometheus.MustRegister(violations)
}

// Raise records a violation of the named invariant check, logs it at error
// level with the supplied structured fields, and panics if TestMode is set.
func Raise(logger *slog.Logger, check string, args ...any) {
	violations.WithLabelValues(check).Inc()
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("invariant violation", append([]any{"check", check}, args...)...)
	if TestMode.Load() {
		panic("invariant violation: " + check)
	}
}

// Count returns the current violation count for check, for tests that
// assert a particular invariant was (or was not) tripped.
func Count(check string) (float64, error) {
	c, err := violations.GetMetricWithLabelValues(check)
	if err != nil {
		return 0, err
	}
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0, err
	}
	return m.GetCounter().GetValue(), nil
}

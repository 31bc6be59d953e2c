package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Metrics names as constants for consistency.
const (
	MetricCacheLookups      = "feed_cache_lookups_total"
	MetricCacheErrors       = "feed_cache_errors_total"
	MetricCacheBreakerState = "feed_cache_breaker_state"
)

// Lookup results.
const (
	ResultHit    = "hit"
	ResultMiss   = "miss"
	ResultShared = "shared"
)

// Error operations.
const (
	OpGet    = "get"
	OpSet    = "set"
	OpDecode = "decode"
	OpEncode = "encode"
)

// Metrics contains Prometheus metrics for cache operations.
// All operations are thread-safe.
type Metrics struct {
	lookups      *prometheus.CounterVec
	errors       *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCacheLookups,
				Help: "Total number of feed cache lookups by result",
			},
			[]string{"result"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCacheErrors,
				Help: "Total number of feed cache backend errors by operation",
			},
			[]string{"op"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricCacheBreakerState,
				Help: "Cache circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"breaker"},
		),
	}
}

// Register registers all metrics with the given registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// IncLookup counts a lookup by result.
func (m *Metrics) IncLookup(result string) {
	m.lookups.WithLabelValues(result).Inc()
}

// IncError counts a backend or codec failure by operation.
func (m *Metrics) IncError(op string) {
	m.errors.WithLabelValues(op).Inc()
}

// SetBreakerState records the current state of a named breaker.
func (m *Metrics) SetBreakerState(name string, state gobreaker.State) {
	m.breakerState.WithLabelValues(name).Set(float64(state))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.lookups,
		m.errors,
		m.breakerState,
	}
}

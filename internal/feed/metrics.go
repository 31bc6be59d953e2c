package feed

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics names as constants for consistency.
const (
	MetricFeedRequests        = "feed_requests_total"
	MetricFeedComputeDuration = "feed_compute_duration_seconds"
	MetricFeedCandidates      = "feed_candidates"
)

// Request outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeError         = "error"
	OutcomeCacheFallback = "cache_fallback"
)

// Metrics contains Prometheus metrics for feed ranking.
// All operations are thread-safe.
type Metrics struct {
	requests        *prometheus.CounterVec
	computeDuration prometheus.Histogram
	candidates      prometheus.Histogram
}

// NewMetrics creates and returns a new Metrics instance with all collectors initialized.
// The metrics are not registered; call Register to register them with a registry.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedRequests,
				Help: "Total number of feed requests by outcome",
			},
			[]string{"outcome"},
		),
		computeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricFeedComputeDuration,
				Help:    "Time spent computing an uncached feed page in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
		candidates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricFeedCandidates,
				Help:    "Number of scored creators per computed feed",
				Buckets: prometheus.ExponentialBuckets(1, 4, 7), // 1 to 4096
			},
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

// IncRequest counts a feed request by outcome.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(outcome).Inc()
}

// ObserveCompute records one uncached computation.
func (m *Metrics) ObserveCompute(seconds float64, candidates int) {
	if m == nil {
		return
	}
	m.computeDuration.Observe(seconds)
	m.candidates.Observe(float64(candidates))
}

// Collectors returns all Prometheus collectors for testing.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requests,
		m.computeDuration,
		m.candidates,
	}
}

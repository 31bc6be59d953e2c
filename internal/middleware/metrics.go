package middleware

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric names exported by the middleware.
const (
	MetricHTTPRequests        = "http_requests_total"
	MetricHTTPDuration        = "http_request_duration_seconds"
	MetricHTTPResponseSize    = "http_response_size_bytes"
	MetricHTTPInFlight        = "http_requests_in_flight"
	MetricRateLimitDecisions  = "rate_limit_decisions_total"
	MetricRateLimitStoreError = "rate_limit_store_errors_total"
)

// Rate limit decision label values.
const (
	DecisionAllowed = "allowed"
	DecisionLimited = "limited"
)

// Metrics holds the Prometheus collectors of the HTTP layer. Create it with
// NewMetrics and expose it with Register. Safe for concurrent use.
type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	responseSize *prometheus.HistogramVec
	inFlight     prometheus.Gauge

	rateLimitDecisions  *prometheus.CounterVec
	rateLimitStoreError prometheus.Counter
}

// NewMetrics builds unregistered collectors.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricHTTPRequests,
			Help: "HTTP requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		// A feed page is computed from several repository reads; cache hits
		// land in the first buckets.
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPDuration,
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{0.002, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "method"}),
		responseSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    MetricHTTPResponseSize,
			Help:    "HTTP response body size in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 7),
		}, []string{"route"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: MetricHTTPInFlight,
			Help: "HTTP requests currently being served",
		}),
		rateLimitDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: MetricRateLimitDecisions,
			Help: "Rate limiter decisions by route, key type and outcome",
		}, []string{"route", "key_type", "decision"}),
		rateLimitStoreError: prometheus.NewCounter(prometheus.CounterOpts{
			Name: MetricRateLimitStoreError,
			Help: "Rate limit store failures; each one let a request through",
		}),
	}
}

// Register registers every collector with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns the collectors in registration order.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requests,
		m.duration,
		m.responseSize,
		m.inFlight,
		m.rateLimitDecisions,
		m.rateLimitStoreError,
	}
}

// observeRequest records a finished request under its route label.
func (m *Metrics) observeRequest(route, method string, code int, elapsed time.Duration, size int64) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route, method).Observe(elapsed.Seconds())
	m.responseSize.WithLabelValues(route).Observe(float64(size))
}

// recordRateLimit counts one limiter decision.
func (m *Metrics) recordRateLimit(route, keyType string, allowed bool) {
	decision := DecisionLimited
	if allowed {
		decision = DecisionAllowed
	}
	m.rateLimitDecisions.WithLabelValues(route, keyType, decision).Inc()
}

// incRateLimitStoreError counts a store failure that failed open.
func (m *Metrics) incRateLimitStoreError() {
	m.rateLimitStoreError.Inc()
}

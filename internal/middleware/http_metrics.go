package middleware

import (
	"net/http"
	"time"
)

// HTTPMetrics records count, latency, response size and in-flight requests
// per route label. Health checks are skipped so orchestrator polling does
// not drown the feed series.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isHealthCheck(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			metrics.inFlight.Inc()
			defer metrics.inFlight.Dec()

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			metrics.observeRequest(routeLabel(r.URL.Path), r.Method, rec.Status(), time.Since(start), rec.written)
		})
	}
}

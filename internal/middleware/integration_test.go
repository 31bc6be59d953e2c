package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/onnwee/creatorfeed/internal/auth"
)

// newFeedChain wraps a stub feed endpoint in the same order as the API server.
func newFeedChain(t *testing.T, buf *bytes.Buffer, m *Metrics, limit RateLimitConfig) http.Handler {
	t.Helper()
	logger := newTestLogger(buf)

	mux := http.NewServeMux()
	mux.Handle("/feed", RateLimiter(NewInMemoryRateLimitStore(), limit, UserKeyFunc(), m)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"results":[],"page":1}`))
		}),
	))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {})

	var h http.Handler = mux
	h = OptionalAuth(auth.NewVerifier("chain-secret"), logger)(h)
	h = Profiling(ProfilingConfig{Logger: logger})(h)
	h = CORS(feedCORSConfig())(h)
	h = HTTPMetrics(m)(h)
	h = Logging(logger)(h)
	h = Tracing("creatorfeed-test")(h)
	return RequestID(h)
}

func TestFeedChain_RateLimitedViewer(t *testing.T) {
	buf := &bytes.Buffer{}
	m, _ := newRegisteredMetrics(t)
	handler := newFeedChain(t, buf, m, RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Minute})

	token, err := auth.NewVerifier("chain-secret").Issue("viewer-9")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/feed?city=paris", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(RequestIDHeader, "feed-"+string(rune('a'+i)))
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", last.Code)
	}
	if last.Header().Get(RequestIDHeader) != "feed-b" {
		t.Errorf("response request id = %q", last.Header().Get(RequestIDHeader))
	}

	lines := accessLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 access lines, got %d: %s", len(lines), buf.String())
	}
	limited := lines[1]
	if limited.Status != http.StatusTooManyRequests || limited.ErrorCode != ErrorCodeRateLimited {
		t.Errorf("unexpected limited line %+v", limited)
	}
	if limited.RequestID != "feed-b" || limited.UserID != "viewer-9" || limited.Route != RouteFeed {
		t.Errorf("limited line lost request context: %+v", limited)
	}
	if lines[0].Level != "INFO" || limited.Level != "WARN" {
		t.Errorf("levels = %s, %s", lines[0].Level, limited.Level)
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues(RouteFeed, "GET", "429")); got != 1 {
		t.Errorf("429 feed requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.rateLimitDecisions.WithLabelValues(RouteFeed, "user", DecisionLimited)); got != 1 {
		t.Errorf("limited decisions = %v, want 1", got)
	}
}

func TestFeedChain_HealthIsQuiet(t *testing.T) {
	buf := &bytes.Buffer{}
	m, _ := newRegisteredMetrics(t)
	handler := newFeedChain(t, buf, m, DefaultFeedLimit())

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := testutil.CollectAndCount(m.requests); got != 0 {
		t.Errorf("health checks must not be counted, got %d series", got)
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Error("health response is missing a request id")
	}
}

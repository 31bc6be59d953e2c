package middleware

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ErrorCodeRateLimited is the error code of a 429 response.
const ErrorCodeRateLimited = "rate_limited"

const rateLimitKeyPrefix = "ratelimit:"

// rateLimitedBody matches the API error envelope.
const rateLimitedBody = `{"error":{"code":"` + ErrorCodeRateLimited + `","message":"Too many feed requests, retry later"}}`

// RateLimitConfig is a fixed window limit: at most RequestsPerWindow requests
// per key in each WindowDuration.
type RateLimitConfig struct {
	RequestsPerWindow int
	WindowDuration    time.Duration
}

// Validate rejects non-positive limits and windows.
func (c RateLimitConfig) Validate() error {
	var errs []error
	if c.RequestsPerWindow <= 0 {
		errs = append(errs, fmt.Errorf("requests per window must be > 0, got %d", c.RequestsPerWindow))
	}
	if c.WindowDuration <= 0 {
		errs = append(errs, fmt.Errorf("window must be > 0, got %s", c.WindowDuration))
	}
	return errors.Join(errs...)
}

// DefaultFeedLimit allows 120 feed requests per minute and key, well above a
// person scrolling through pages.
func DefaultFeedLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerWindow: 120, WindowDuration: time.Minute}
}

// RateLimitDecision is the outcome of one RateLimitStore.Allow call.
type RateLimitDecision struct {
	Allowed   bool
	Remaining int
	// RetryAfter is how long until the window resets; zero when allowed.
	RetryAfter time.Duration
}

// RateLimitStore counts requests per key.
type RateLimitStore interface {
	Allow(ctx context.Context, key string, cfg RateLimitConfig) RateLimitDecision
}

type window struct {
	count int
	ends  time.Time
}

// InMemoryRateLimitStore is a fixed window RateLimitStore local to one
// process. Expired windows are dropped by Cleanup.
type InMemoryRateLimitStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

// NewInMemoryRateLimitStore returns an empty store.
func NewInMemoryRateLimitStore() *InMemoryRateLimitStore {
	return &InMemoryRateLimitStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow counts a request for key.
func (s *InMemoryRateLimitStore) Allow(_ context.Context, key string, cfg RateLimitConfig) RateLimitDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || !now.Before(w.ends) {
		w = &window{ends: now.Add(cfg.WindowDuration)}
		s.windows[key] = w
	}
	if w.count >= cfg.RequestsPerWindow {
		return RateLimitDecision{RetryAfter: w.ends.Sub(now)}
	}
	w.count++
	return RateLimitDecision{Allowed: true, Remaining: cfg.RequestsPerWindow - w.count}
}

// Cleanup drops windows that have ended.
func (s *InMemoryRateLimitStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, w := range s.windows {
		if !now.Before(w.ends) {
			delete(s.windows, key)
		}
	}
}

// Len returns the number of tracked keys.
func (s *InMemoryRateLimitStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *InMemoryRateLimitStore) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// KeyFunc derives the rate limit key of a request.
type KeyFunc func(r *http.Request) string

// IPKeyFunc keys on the client address: the first X-Forwarded-For hop, then
// X-Real-IP, then the host part of RemoteAddr.
func IPKeyFunc() KeyFunc {
	return clientIP
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// UserKeyFunc keys authenticated viewers by id ("user:<id>") so a viewer
// keeps one quota across networks, and anonymous callers by IP ("ip:<addr>").
func UserKeyFunc() KeyFunc {
	return func(r *http.Request) string {
		if id := GetUserID(r.Context()); id != "" {
			return "user:" + id
		}
		return "ip:" + clientIP(r)
	}
}

func keyType(key string) string {
	kind, _, found := strings.Cut(key, ":")
	if !found {
		return "custom"
	}
	return kind
}

// RateLimiter rejects requests over cfg with 429 and the API error envelope.
// Every response carries X-RateLimit-Limit and X-RateLimit-Remaining; a 429
// also carries Retry-After (seconds) and X-RateLimit-Reset (Unix time).
// metrics may be nil.
func RateLimiter(store RateLimitStore, cfg RateLimitConfig, keyFunc KeyFunc, metrics *Metrics) func(http.Handler) http.Handler {
	limit := strconv.Itoa(cfg.RequestsPerWindow)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			d := store.Allow(r.Context(), rateLimitKeyPrefix+key, cfg)
			if metrics != nil {
				metrics.recordRateLimit(routeLabel(r.URL.Path), keyType(key), d.Allowed)
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}

			retry := wholeSeconds(d.RetryAfter)
			h.Set("Retry-After", strconv.Itoa(retry))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Duration(retry)*time.Second).Unix(), 10))
			h.Set("Content-Type", "application/json")
			UpdateResponseContext(w, SetErrorCode(r.Context(), ErrorCodeRateLimited))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(rateLimitedBody))
		})
	}
}

// wholeSeconds rounds d up to a whole number of seconds, at least 1.
func wholeSeconds(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	return max(secs, 1)
}

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript counts a hit on KEYS[1] and returns {count, pttl}. The
// first hit of a window, or a key left without a TTL, starts a window of
// ARGV[1] milliseconds.
var fixedWindowScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
local ttl = redis.call('PTTL', KEYS[1])
if count == 1 or ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

var errMalformedWindowReply = errors.New("malformed rate limit script reply")

// RedisRateLimitStore shares fixed window counters between API replicas.
// When Redis fails the request is allowed with a full quota, counted on the
// store error metric and logged.
type RedisRateLimitStore struct {
	client  redis.Scripter
	metrics *Metrics
	logger  *slog.Logger
}

// RedisRateLimitOption configures a RedisRateLimitStore.
type RedisRateLimitOption func(*RedisRateLimitStore)

// WithRateLimitMetrics counts fail-open events on m.
func WithRateLimitMetrics(m *Metrics) RedisRateLimitOption {
	return func(s *RedisRateLimitStore) { s.metrics = m }
}

// WithRateLimitLogger logs fail-open events on logger.
func WithRateLimitLogger(logger *slog.Logger) RedisRateLimitOption {
	return func(s *RedisRateLimitStore) { s.logger = logger }
}

// NewRedisRateLimitStore returns a store running the window script on client.
func NewRedisRateLimitStore(client redis.Scripter, opts ...RedisRateLimitOption) *RedisRateLimitStore {
	s := &RedisRateLimitStore{client: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow counts a request for key in Redis.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, cfg RateLimitConfig) RateLimitDecision {
	windowMs := max(cfg.WindowDuration.Milliseconds(), 1)

	res, err := fixedWindowScript.Run(ctx, s.client, []string{key}, windowMs).Int64Slice()
	if err == nil && len(res) != 2 {
		err = errMalformedWindowReply
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.incRateLimitStoreError()
		}
		s.logger.WarnContext(ctx, "rate limit store unavailable, allowing feed request",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return RateLimitDecision{Allowed: true, Remaining: cfg.RequestsPerWindow}
	}

	count := int(res[0])
	if count > cfg.RequestsPerWindow {
		return RateLimitDecision{RetryAfter: time.Duration(res[1]) * time.Millisecond}
	}
	return RateLimitDecision{Allowed: true, Remaining: cfg.RequestsPerWindow - count}
}

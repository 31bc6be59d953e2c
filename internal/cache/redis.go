package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
)

// ErrBackendUnavailable is returned while the Redis circuit breaker is open.
var ErrBackendUnavailable = errors.New("cache backend unavailable")

// BreakerSettings configures the circuit breaker guarding Redis.
type BreakerSettings struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which failure counts reset while closed.
	Interval time.Duration
	// Timeout spent open before probing again.
	Timeout time.Duration
	// ConsecutiveFailures that trip the breaker.
	ConsecutiveFailures uint32
}

// DefaultBreakerSettings returns settings tuned for a short-TTL feed cache:
// trip after 5 consecutive failures, try again after 30s.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// RedisStore implements Store on Redis with a circuit breaker so an
// unavailable Redis fails fast instead of adding latency to every request.
type RedisStore struct {
	client  *redis.Client
	cb      *gobreaker.CircuitBreaker[[]byte]
	metrics *Metrics
}

// NewRedisStore creates a Redis-backed store. metrics may be nil.
func NewRedisStore(client *redis.Client, settings BreakerSettings, metrics *Metrics) *RedisStore {
	s := &RedisStore{client: client, metrics: metrics}

	s.cb = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "feed-cache-redis",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		// A miss is a normal answer from a healthy Redis.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("cache circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
			if s.metrics != nil {
				s.metrics.SetBreakerState(name, to)
			}
		},
	})

	if metrics != nil {
		metrics.SetBreakerState("feed-cache-redis", gobreaker.StateClosed)
	}
	return s
}

// Get returns the value for key or ErrCacheMiss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.cb.Execute(func() ([]byte, error) {
		b, err := s.client.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return b, err
	})
	return val, s.translate(err)
}

// Set stores value under key with an expiry of ttl.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	_, err := s.cb.Execute(func() ([]byte, error) {
		return nil, s.client.Set(ctx, key, value, ttl).Err()
	})
	return s.translate(err)
}

// State returns the current circuit breaker state.
func (s *RedisStore) State() gobreaker.State {
	return s.cb.State()
}

func (s *RedisStore) translate(err error) error {
	switch {
	case err == nil, errors.Is(err, ErrCacheMiss):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	default:
		return fmt.Errorf("redis cache: %w", err)
	}
}

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"
)

// Cache returns a cached value for key or computes and stores it.
type Cache[T any] interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error)
}

// JSONCache caches JSON-encoded values of type T in a Store.
// Concurrent misses for the same key are collapsed into one computation.
//
// Backend failures never fail a lookup: a failed read is treated as a miss
// and a failed write is logged and dropped. Only errors from compute are
// returned to the caller, and such results are never stored.
type JSONCache[T any] struct {
	store   Store
	group   singleflight.Group
	metrics *Metrics
	logger  *slog.Logger
}

// NewJSONCache creates a JSONCache over store. metrics and logger may be nil.
func NewJSONCache[T any](store Store, metrics *Metrics, logger *slog.Logger) *JSONCache[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONCache[T]{
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// GetOrCompute returns the cached value for key, or runs compute and stores
// its result for ttl.
func (c *JSONCache[T]) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if v, ok := c.lookup(ctx, key); ok {
		c.incLookup(ResultHit)
		return v, nil
	}

	res, err, shared := c.group.Do(key, func() (any, error) {
		v, err := compute(ctx)
		if err != nil {
			return v, err
		}
		c.save(ctx, key, v, ttl)
		return v, nil
	})
	if shared {
		c.incLookup(ResultShared)
	} else {
		c.incLookup(ResultMiss)
	}

	v, _ := res.(T)
	return v, err
}

func (c *JSONCache[T]) lookup(ctx context.Context, key string) (T, bool) {
	var zero T

	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return zero, false
	}
	if err != nil {
		c.incError(OpGet)
		c.logger.WarnContext(ctx, "cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.incError(OpDecode)
		c.logger.WarnContext(ctx, "cache entry undecodable",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return zero, false
	}
	return v, true
}

func (c *JSONCache[T]) save(ctx context.Context, key string, v T, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.incError(OpEncode)
		c.logger.WarnContext(ctx, "cache entry unencodable",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}
	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		c.incError(OpSet)
		c.logger.WarnContext(ctx, "cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

func (c *JSONCache[T]) incLookup(result string) {
	if c.metrics != nil {
		c.metrics.IncLookup(result)
	}
}

func (c *JSONCache[T]) incError(op string) {
	if c.metrics != nil {
		c.metrics.IncError(op)
	}
}

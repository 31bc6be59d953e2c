// Package health checks the services the feed depends on.
package health

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// redisPinger is the part of a go-redis client the checker uses.
type redisPinger interface {
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChecker reports whether the shared page cache answers PING.
type RedisChecker struct {
	client redisPinger
}

func NewRedisChecker(client redisPinger) *RedisChecker {
	return &RedisChecker{client: client}
}

func (r *RedisChecker) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

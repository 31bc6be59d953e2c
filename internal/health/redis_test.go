package health

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisChecker_Unreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	defer client.Close()

	err := NewRedisChecker(client).HealthCheck(context.Background())
	if err == nil {
		t.Fatal("expected error for unreachable redis")
	}
	if !strings.HasPrefix(err.Error(), "redis ping: ") {
		t.Errorf("error = %q, want it to name redis", err.Error())
	}
}

func TestRedisChecker_CancelledContext(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NewRedisChecker(client).HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRedisChecker_Live(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis not available, skipping integration test")
	}

	if err := NewRedisChecker(client).HealthCheck(ctx); err != nil {
		t.Errorf("expected healthy redis, got %v", err)
	}
}

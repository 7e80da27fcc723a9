package ratelimit

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"arbiter/internal/domain"
)

func TestMemoryLimiterWindow(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dec, err := limiter.Allow(ctx, "client-a", 3, time.Minute)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !dec.Allowed || dec.Remaining != 2-i {
			t.Fatalf("request %d: unexpected decision %+v", i+1, dec)
		}
	}
	dec, _ := limiter.Allow(ctx, "client-a", 3, time.Minute)
	if dec.Allowed {
		t.Fatal("fourth request in window must be denied")
	}
	if !dec.ResetAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected reset %v", dec.ResetAt)
	}
	if other, _ := limiter.Allow(ctx, "client-b", 3, time.Minute); !other.Allowed {
		t.Fatal("keys are limited independently")
	}

	now = now.Add(time.Minute)
	if dec, _ := limiter.Allow(ctx, "client-a", 3, time.Minute); !dec.Allowed {
		t.Fatal("a new window starts after reset")
	}
}

func TestMemoryLimiterDisabled(t *testing.T) {
	limiter := NewMemoryLimiter(MemoryLimiterConfig{})
	dec, err := limiter.Allow(context.Background(), "k", 0, time.Second)
	if err != nil || !dec.Allowed {
		t.Fatalf("limit 0 disables limiting: %+v %v", dec, err)
	}
}

func TestMemoryLimiterCapacity(t *testing.T) {
	now := time.Unix(0, 0)
	limiter := NewMemoryLimiter(MemoryLimiterConfig{Now: func() time.Time { return now }, MaxKeys: 2})
	ctx := context.Background()
	_, _ = limiter.Allow(ctx, "a", 1, time.Second)
	_, _ = limiter.Allow(ctx, "b", 1, time.Second)
	if _, err := limiter.Allow(ctx, "c", 1, time.Second); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	now = now.Add(2 * time.Second)
	if _, err := limiter.Allow(ctx, "c", 1, time.Second); err != nil {
		t.Fatalf("expired keys are collected: %v", err)
	}
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client, err := NewRedisClient(ctx, RedisConfig{Addr: addr})
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer client.Close()
	limiter, err := NewRedisLimiter(client, nil)
	if err != nil {
		t.Fatalf("limiter: %v", err)
	}
	key := "test:" + uuid.NewString()
	t.Cleanup(func() { client.Del(context.Background(), KeyPrefix+key) })

	for i := 0; i < 2; i++ {
		dec, err := limiter.Allow(ctx, key, 2, time.Minute)
		if err != nil || !dec.Allowed {
			t.Fatalf("request %d: %+v %v", i+1, dec, err)
		}
	}
	dec, err := limiter.Allow(ctx, key, 2, time.Minute)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if dec.Allowed || dec.Remaining != 0 {
		t.Fatalf("third request must be denied: %+v", dec)
	}
}

func TestRedisLimiterRequiresClient(t *testing.T) {
	if _, err := NewRedisLimiter(nil, nil); err == nil {
		t.Fatal("expected error")
	}
	if _, err := NewRedisClient(context.Background(), RedisConfig{}); err == nil {
		t.Fatal("expected error for empty addr")
	}
}

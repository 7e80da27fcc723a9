package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"arbiter/internal/domain"
)

type memoryLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	data    map[string]*memoryBucket
	maxKeys int
}

type memoryBucket struct {
	count     int
	windowEnd time.Time
}

type MemoryLimiterConfig struct {
	Now     func() time.Time
	MaxKeys int
}

// NewMemoryLimiter counts requests in fixed windows inside this process.
func NewMemoryLimiter(cfg MemoryLimiterConfig) domain.RateLimiter {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &memoryLimiter{
		now:     cfg.Now,
		data:    make(map[string]*memoryBucket),
		maxKeys: cfg.MaxKeys,
	}
}

func (m *memoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return unlimited(limit), nil
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	bucket, ok := m.data[key]
	if ok && !now.Before(bucket.windowEnd) {
		delete(m.data, key)
		ok = false
	}
	if !ok {
		if len(m.data) >= m.maxKeys {
			m.gc(now)
		}
		if len(m.data) >= m.maxKeys {
			return domain.RateLimitDecision{}, fmt.Errorf("%w: limiter holds %d keys", domain.ErrRateLimited, len(m.data))
		}
		bucket = &memoryBucket{windowEnd: now.Add(window)}
		m.data[key] = bucket
	}

	if bucket.count >= limit {
		// Denied requests are not counted.
		return decide(limit, int64(bucket.count)+1, bucket.windowEnd), nil
	}
	bucket.count++
	return decide(limit, int64(bucket.count), bucket.windowEnd), nil
}

func unlimited(limit int) domain.RateLimitDecision {
	return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}
}

// decide turns the number of requests seen in a window, this one included, into a verdict.
func decide(limit int, seen int64, resetAt time.Time) domain.RateLimitDecision {
	remaining := limit - int(seen)
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitDecision{
		Allowed:   seen <= int64(limit),
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

func (m *memoryLimiter) gc(now time.Time) {
	for key, bucket := range m.data {
		if !now.Before(bucket.windowEnd) {
			delete(m.data, key)
		}
	}
}

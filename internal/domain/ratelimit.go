package domain

import (
	"context"
	"time"
)

// RateLimitDecision is the limiter's verdict for one request key.
type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RateLimiter counts requests per key inside fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}

// RetryAfter is the wait until the window resets, never negative.
func (d RateLimitDecision) RetryAfter(now time.Time) time.Duration {
	if d.ResetAt.IsZero() || !d.ResetAt.After(now) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"arbiter/internal/domain"
)

const (
	routePresetsRead = "presets:read"
	routeCasesRead   = "cases:read"
	routeCasesWrite  = "cases:write"
	routeMerkle      = "merkle"
	routeSLA         = "sla"
)

func (s *Server) limit(routeID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.enforceRateLimit(c, routeID) {
			c.Abort()
			return
		}
		c.Next()
	}
}

func (s *Server) enforceRateLimit(c *gin.Context, routeID string) bool {
	if s.rateLimiter == nil || s.rateLimitRequests <= 0 {
		return true
	}
	key := fmt.Sprintf("client:%s:endpoint:%s", c.ClientIP(), routeID)
	decision, err := s.rateLimiter.Allow(c.Request.Context(), key, s.rateLimitRequests, s.rateLimitWindow)
	if err != nil {
		if s.rateLimitFailClosed {
			writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMIT_UNAVAILABLE", "rate limiter unavailable")
			return false
		}
		return true
	}
	writeRateLimitHeaders(c, decision, s.now())
	if !decision.Allowed {
		writeErrorCode(c, http.StatusTooManyRequests, "RATE_LIMITED", "rate limit exceeded")
		return false
	}
	return true
}

func writeRateLimitHeaders(c *gin.Context, decision domain.RateLimitDecision, now time.Time) {
	if decision.Limit > 0 {
		c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	}
	if decision.Remaining >= 0 {
		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
	}
	if !decision.ResetAt.IsZero() {
		c.Header("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
		if !decision.Allowed {
			c.Header("Retry-After", strconv.FormatInt(int64(decision.RetryAfter(now).Seconds()), 10))
		}
	}
}

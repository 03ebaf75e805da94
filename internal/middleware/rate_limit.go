package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Limiter is satisfied by *cache.SlidingWindowLimiter
type Limiter interface {
	Allow(ctx context.Context, id string) (allowed bool, current int64, retryAfter time.Duration, err error)
}

// RateLimit applies limiter per authenticated user, falling back to the
// client IP. Limiter errors let the request through.
func RateLimit(limiter Limiter, limit int, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		id := "ip:" + c.ClientIP()
		if userCtx, ok := GetUserContext(c); ok {
			id = "user:" + userCtx.UserID
		}

		allowed, current, retryAfter, err := limiter.Allow(c.Request.Context(), id)
		if err != nil {
			logger.WithError(err).WithField("limiter_id", id).Warn("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		remaining := int64(limit) - current
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			abort(c, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "Too many requests, please slow down")
			return
		}
		c.Next()
	}
}

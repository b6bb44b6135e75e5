package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/nbaparkdev/assettrack-ti/pkg/errors"
	"github.com/nbaparkdev/assettrack-ti/pkg/response"
)

// RateLimiter throttles sensitive routes with a per-client fixed window
// counter stored in Redis. Credential endpoints are the main consumers.
type RateLimiter struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRateLimiter constructs the limiter. A nil client disables limiting.
func NewRateLimiter(client *redis.Client, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{client: client, logger: logger}
}

// Limit allows at most max requests per client IP within the window.
// Redis outages fail open so an unavailable cache never locks everyone out.
func (r *RateLimiter) Limit(name string, max int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil || r.client == nil || max <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", name, c.ClientIP())
		count, err := r.client.Incr(c.Request.Context(), key).Result()
		if err != nil {
			r.logger.Warn("rate limit check failed", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}
		if count == 1 {
			if err := r.client.Expire(c.Request.Context(), key, window).Err(); err != nil {
				r.logger.Warn("rate limit expire failed", zap.String("key", key), zap.Error(err))
			}
		}

		if count > int64(max) {
			response.Error(c, appErrors.ErrTooManyRequests)
			c.Abort()
			return
		}
		c.Next()
	}
}

package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sitebooks/backoffice/utils"
)

type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// rateLimitKey counts per business when the request is authenticated, per client IP otherwise.
func rateLimitKey(c *gin.Context) string {
	if businessId, ok := utils.GetBusinessIdFromContext(c.Request.Context()); ok && businessId != "" {
		return "ratelimit:biz:" + businessId
	}
	return "ratelimit:ip:" + c.ClientIP()
}

// RateLimitMiddleware is a fixed-window counter. The window starts at the first request.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	ctx := c.Request.Context()
	key := rateLimitKey(c)

	// INCR and the TTL go in one MULTI; EXPIRE NX also repairs a counter left without a TTL.
	var incr *redis.IntCmd
	if _, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, rl.window)
		return nil
	}); err != nil {
		c.AbortWithError(http.StatusInternalServerError, err)
		return
	}
	count := incr.Val()

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}

	c.Next()
}

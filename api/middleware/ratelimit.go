package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/use-agent/shelfprobe/config"
	"github.com/use-agent/shelfprobe/models"
	"golang.org/x/time/rate"
)

// maxIdentities bounds the number of tracked callers.
const maxIdentities = 10000

// RateLimit returns per-identity (API key or IP) token-bucket rate limiting
// middleware powered by golang.org/x/time/rate. A caller's limiter is
// dropped an hour after it was created, or earlier under LRU pressure.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	limiters := expirable.NewLRU[string, *rate.Limiter](maxIdentities, nil, time.Hour)

	var mu sync.Mutex

	getLimiter := func(identity string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		if l, ok := limiters.Get(identity); ok {
			return l
		}
		l := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
		limiters.Add(identity, l)
		return l
	}

	return func(c *gin.Context) {
		// Prefer API key as identity (set by auth middleware); fall back to IP.
		identity := c.GetString(apiKeyContextKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		if !getLimiter(identity).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, models.ErrorResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeRateLimited,
					Message: "rate limit exceeded, please slow down",
				},
			})
			return
		}

		c.Next()
	}
}

package ratelimit

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// KeyFunc names the caller; an empty result falls back to the client IP.
type KeyFunc func(c *gin.Context) string

type RejectFunc func(c *gin.Context, d Decision)

// Middleware lets requests through when the limiter itself fails.
func Middleware(l Limiter, scope string, key KeyFunc, reject RejectFunc, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := ""
		if key != nil {
			id = key(c)
		}
		if id == "" {
			id = "ip:" + c.ClientIP()
		} else {
			id = "user:" + id
		}
		d, err := l.Allow(c.Request.Context(), scope+":"+id)
		if err != nil {
			if logger != nil {
				logger.Warn("ratelimit: limiter failed", zap.String("scope", scope), zap.Error(err))
			}
			c.Next()
			return
		}
		if d.Allowed {
			c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(d.RetryAfter.Seconds()))))
		if reject != nil {
			reject(c, d)
			return
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "RATE_LIMITED", "message": "too many requests"})
	}
}

package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const burstCapacityMultiplier = 2

// RateLimit rejects requests above rps with 429. The bucket is shared by
// every client. rps <= 0 disables limiting.
func RateLimit(rps float64, logger *slog.Logger) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if logger == nil {
		logger = slog.Default()
	}

	burst := int(rps) * burstCapacityMultiplier
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			logger.Warn("Rate limit exceeded",
				slog.String("path", c.Request.URL.Path),
				slog.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

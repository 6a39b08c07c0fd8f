package http

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit caps requests per client IP with a token bucket. Every
// route shares one budget per client; exceeding it returns 429 with the
// usual machine-readable code.
func RateLimit(perHour, burst int) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*rate.Limiter)
	refill := rate.Limit(float64(perHour) / 3600)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		limiter, ok := limiters[ip]
		if !ok {
			limiter = rate.NewLimiter(refill, burst)
			limiters[ip] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":  "rate_limited",
				"error": "too many requests, please slow down",
			})
			return
		}
		c.Next()
	}
}

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Idle visitors are forgotten after visitorTTL
const (
	visitorTTL     = 10 * time.Minute
	visitorCleanup = time.Minute
)

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	visitors *cache.Cache
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter allows rps requests per second per client with the given burst
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors: cache.New(visitorTTL, visitorCleanup),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *RateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, ok := rl.visitors.Get(ip); ok {
		l := v.(*rate.Limiter)
		rl.visitors.Set(ip, l, cache.DefaultExpiration)
		return l
	}

	l := rate.NewLimiter(rl.rate, rl.burst)
	rl.visitors.Set(ip, l, cache.DefaultExpiration)
	return l
}

// Visitors returns the number of clients currently tracked
func (rl *RateLimiter) Visitors() int {
	return rl.visitors.ItemCount()
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Rate limit exceeded. Please try again later.",
			})
			return
		}

		c.Next()
	}
}

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per minute for each IP.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		ttl:      10 * time.Minute,
		now:      time.Now,
	}
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, exists := rl.visitors[ip]; exists {
		v.lastSeen = rl.now()
		return v.limiter
	}

	v := &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst), lastSeen: rl.now()}
	rl.visitors[ip] = v
	rl.scheduleExpiry(ip, rl.ttl)

	return v.limiter
}

func (rl *RateLimiter) scheduleExpiry(ip string, after time.Duration) {
	time.AfterFunc(after, func() {
		if wait, gone := rl.expire(ip); !gone {
			rl.scheduleExpiry(ip, wait)
		}
	})
}

// expire forgets ip once it has been idle for the ttl. Otherwise it returns
// the time left until that happens.
func (rl *RateLimiter) expire(ip string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		return 0, true
	}
	if idle := rl.now().Sub(v.lastSeen); idle < rl.ttl {
		return rl.ttl - idle, false
	}
	delete(rl.visitors, ip)
	return 0, true
}

// Limit rejects requests over the per-IP budget with 429.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getLimiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
			return
		}
		c.Next()
	}
}

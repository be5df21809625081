package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdle = 10 * time.Minute

// ipLimiter throttles anonymous order placement per client address
type ipLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*limitedClient
	swept   time.Time
}

type limitedClient struct {
	limiter *rate.Limiter
	seen    time.Time
}

// newIPLimiter returns nil when perMinute is not positive, which disables limiting
func newIPLimiter(perMinute, burst int) *ipLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   burst,
		clients: make(map[string]*limitedClient),
	}
}

func (l *ipLimiter) allow(ip string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > limiterIdle {
		for key, c := range l.clients {
			if now.Sub(c.seen) > limiterIdle {
				delete(l.clients, key)
			}
		}
		l.swept = now
	}

	c, ok := l.clients[ip]
	if !ok {
		c = &limitedClient{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = c
	}
	c.seen = now
	return c.limiter.AllowN(now, 1)
}

func (l *ipLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l != nil && !l.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many orders, please wait a moment"})
			return
		}
		c.Next()
	}
}

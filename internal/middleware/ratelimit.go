package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/deskhq/desk-session/internal/config"
)

// idleEviction bounds how long an inactive client keeps its bucket.
const idleEviction = 5 * time.Minute

// RateLimiter throttles the session endpoints per client IP. Each client
// holds a token bucket sized from config; buckets idle past the eviction
// window are dropped on the next insert.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*clientBucket
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds a limiter from the configured requests-per-minute
// budget and burst. A non-positive budget disables limiting; a non-positive
// burst defaults to a tenth of the budget.
func NewRateLimiter(cfg config.Config) *RateLimiter {
	if cfg.RateLimitRPM <= 0 {
		return nil
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = cfg.RateLimitRPM / 10
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:   rate.Limit(float64(cfg.RateLimitRPM) / 60.0),
		burst:   burst,
		buckets: make(map[string]*clientBucket),
	}
}

// Handler returns the gin middleware enforcing the limit. A nil limiter
// passes every request through.
func (r *RateLimiter) Handler() gin.HandlerFunc {
	if r == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if !r.bucketFor(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":             "rate_limited",
				"error_description": "Too many requests. Please slow down.",
			})
			return
		}
		c.Next()
	}
}

func (r *RateLimiter) bucketFor(key string) *rate.Limiter {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.buckets[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}

	limiter := rate.NewLimiter(r.limit, r.burst)
	r.buckets[key] = &clientBucket{limiter: limiter, lastSeen: now}
	r.evictIdleLocked(now)
	return limiter
}

// evictIdleLocked must be called with r.mu held.
func (r *RateLimiter) evictIdleLocked(now time.Time) {
	for key, entry := range r.buckets {
		if now.Sub(entry.lastSeen) > idleEviction {
			delete(r.buckets, key)
		}
	}
}

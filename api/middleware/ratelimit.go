package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/scrapeurl/config"
	"github.com/use-agent/scrapeurl/models"
	"golang.org/x/time/rate"
)

const (
	limiterIdle  = time.Hour
	limiterSweep = 5 * time.Minute
)

// keyLimiters hands out one token bucket per caller identity.
type keyLimiters struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	*rate.Limiter
	lastSeen time.Time
}

func newKeyLimiters(cfg config.RateLimitConfig) *keyLimiters {
	k := &keyLimiters{
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		buckets: make(map[string]*bucket),
	}
	go k.sweep()
	return k
}

func (k *keyLimiters) get(identity string, now time.Time) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()
	b, ok := k.buckets[identity]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(k.limit, k.burst)}
		k.buckets[identity] = b
	}
	b.lastSeen = now
	return b.Limiter
}

// sweep evicts buckets idle for longer than limiterIdle.
func (k *keyLimiters) sweep() {
	ticker := time.NewTicker(limiterSweep)
	defer ticker.Stop()
	for now := range ticker.C {
		cutoff := now.Add(-limiterIdle)
		k.mu.Lock()
		for id, b := range k.buckets {
			if b.lastSeen.Before(cutoff) {
				delete(k.buckets, id)
			}
		}
		k.mu.Unlock()
	}
}

// RateLimit limits each caller to a token bucket. The caller is the API key
// set by Auth, or the client IP when auth is off. A non-positive rate
// disables limiting.
func RateLimit(cfg config.RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiters := newKeyLimiters(cfg)

	return func(c *gin.Context) {
		identity := c.GetString(APIKeyContextKey)
		if identity == "" {
			identity = c.ClientIP()
		}

		now := time.Now()
		lim := limiters.get(identity, now)
		if !lim.AllowN(now, 1) {
			wait := time.Duration(float64(time.Second) / cfg.RequestsPerSecond)
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			abort(c, http.StatusTooManyRequests, models.ErrCodeRateLimited, "rate limit exceeded, please slow down")
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(0, int(lim.TokensAt(now)))))

		c.Next()
	}
}

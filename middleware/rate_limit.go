package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// KeyFunc derives the throttle bucket key for a request.
type KeyFunc func(c echo.Context) string

// keyLimiter holds a rate limiter and the last time it was seen.
type keyLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides keyed rate limiting for one throttle scope. The key
// derivation policy is supplied by the caller; counter state lives in the
// per-key token buckets.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyLimiter
	rate     rate.Limit
	burst    int
	keyFn    KeyFunc
}

// NewRateLimiter creates a keyed rate limiter. A nil key function falls back
// to the client IP.
func NewRateLimiter(r rate.Limit, burst int, keyFn KeyFunc) *RateLimiter {
	if keyFn == nil {
		keyFn = func(c echo.Context) string { return c.RealIP() }
	}
	rl := &RateLimiter{
		limiters: make(map[string]*keyLimiter),
		rate:     r,
		burst:    burst,
		keyFn:    keyFn,
	}
	go rl.cleanupLoop()
	return rl
}

// getLimiter returns the rate limiter for the given key, creating one if needed.
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, exists := rl.limiters[key]; exists {
		l.lastSeen = time.Now()
		return l.limiter
	}

	limiter := rate.NewLimiter(rl.rate, rl.burst)
	rl.limiters[key] = &keyLimiter{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

// cleanupLoop removes stale entries every 3 minutes.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(3 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		for key, l := range rl.limiters {
			if time.Since(l.lastSeen) > 5*time.Minute {
				delete(rl.limiters, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware returns an Echo middleware that enforces the rate limit.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			limiter := rl.getLimiter(rl.keyFn(c))

			if !limiter.Allow() {
				retryAfter := max(int(1.0/float64(rl.rate)), 1)
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}

			return next(c)
		}
	}
}

package echoapi

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const bucketTTL = 5 * time.Minute

type (
	bucket struct {
		lim  *rate.Limiter
		seen time.Time
	}

	// ipRateLimiter is a token bucket per client IP. Idle buckets are dropped after bucketTTL.
	ipRateLimiter struct {
		mu        sync.Mutex
		buckets   map[string]*bucket
		perSecond rate.Limit
		burst     int
		lastSweep time.Time
	}
)

// newIPRateLimiter returns a limiter allowing perSecond requests per IP with bursts of burst.
// A non-positive perSecond disables limiting.
func newIPRateLimiter(perSecond float64, burst int) *ipRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &ipRateLimiter{
		buckets:   make(map[string]*bucket),
		perSecond: limit,
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (l *ipRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > bucketTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.perSecond, l.burst)}
		l.buckets[ip] = b
	}
	b.seen = now
	return b.lim.Allow()
}

func (l *ipRateLimiter) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		ip := ctx.RealIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.allow(ip) {
			return errTooManyRequests
		}
		return next(ctx)
	}
}

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter tracks per-client token buckets. Buckets refill
// continuously at rate/window and are pruned once idle.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    int
	window  time.Duration

	lastPrune time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

const (
	pruneEvery = 5 * time.Minute
	idleAfter  = time.Hour
)

// NewRateLimiter allows rate requests per window for each client key.
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		buckets:   make(map[string]*bucket),
		rate:      rate,
		window:    window,
		lastPrune: time.Now(),
	}
}

// Stop is kept for symmetry with other lifecycle-managed components.
// Pruning happens inline, so there is nothing to tear down.
func (rl *RateLimiter) Stop() {}

// Allow reports whether a request under key fits in its bucket
// and consumes a token when it does.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastPrune) > pruneEvery {
		for k, b := range rl.buckets {
			if now.Sub(b.seen) > idleAfter {
				delete(rl.buckets, k)
			}
		}
		rl.lastPrune = now
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rl.rate), seen: now}
		rl.buckets[key] = b
	} else {
		refill := float64(rl.rate) * now.Sub(b.seen).Seconds() / rl.window.Seconds()
		b.tokens += refill
		if b.tokens > float64(rl.rate) {
			b.tokens = float64(rl.rate)
		}
		b.seen = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// clientKey identifies the caller, preferring proxy headers over the
// raw socket address.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return fwd
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

// RateLimitMiddleware rejects requests over the limit with 429 and
// rate-limit headers.
func RateLimitMiddleware(limiter *RateLimiter) func(http.Handler) http.Handler {
	limit := strconv.Itoa(limiter.rate)
	retryAfter := strconv.Itoa(int(limiter.window.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientKey(r)) {
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("X-RateLimit-Limit", limit)
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", retryAfter)
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error": "rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter applies a fixed-window limit per client key, counted in Redis
// so the limit holds across server replicas. With no Redis client everything
// is allowed.
type RateLimiter struct {
	rdb      *redis.Client
	requests int
	window   time.Duration
}

func NewRateLimiter(rdb *redis.Client, requests, windowSeconds int) *RateLimiter {
	if requests <= 0 {
		requests = 100
	}
	if windowSeconds <= 0 {
		windowSeconds = 60
	}

	return &RateLimiter{
		rdb:      rdb,
		requests: requests,
		window:   time.Duration(windowSeconds) * time.Second,
	}
}

// Allow counts a request for key and reports whether it is within the limit,
// plus remaining quota and when the window resets. Redis errors fail open.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time) {
	now := time.Now()
	if rl.rdb == nil {
		return true, rl.requests, now.Add(rl.window)
	}

	window := now.Truncate(rl.window)
	redisKey := "ratelimit:" + key + ":" + strconv.FormatInt(window.Unix(), 10)
	resetTime := window.Add(rl.window)

	pipe := rl.rdb.TxPipeline()
	count := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, rl.requests, resetTime
	}

	used := int(count.Val())
	remaining := rl.requests - used
	if remaining < 0 {
		remaining = 0
	}

	return used <= rl.requests, remaining, resetTime
}

// RateLimit returns a middleware that applies per-IP rate limiting
func RateLimit(rdb *redis.Client, requests, windowSeconds int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rdb, requests, windowSeconds)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)

			allowed, remaining, resetTime := limiter.Allow(r.Context(), ip)

			// Set rate limit headers
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.requests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

			if !allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(time.Until(resetTime).Seconds())+1, 10))
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// getClientIP extracts the client IP from the request
func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (set by proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// Take the first IP in the list (original client)
		for i := 0; i < len(xff); i++ {
			if xff[i] == ',' {
				return xff[:i]
			}
		}
		return xff
	}

	// Check X-Real-IP header (set by some proxies)
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// Fall back to RemoteAddr
	ip := r.RemoteAddr
	// Remove port if present
	for i := len(ip) - 1; i >= 0; i-- {
		if ip[i] == ':' {
			return ip[:i]
		}
	}
	return ip
}

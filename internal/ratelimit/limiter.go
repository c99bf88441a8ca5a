// Package ratelimit provides sliding-window request limiting with an
// in-process backend for single instances and a redis backend for fleets.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"eaglechat-server/internal/redis"
)

// Result describes the outcome of one rate limit check
type Result struct {
	Allowed   bool          `json:"allowed"`
	Limit     int           `json:"limit"`
	Remaining int           `json:"remaining"`
	Window    time.Duration `json:"window"`
	ResetTime time.Time     `json:"reset_time"`
}

// Limiter is one sliding-window policy applied per key
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}

// WindowLimiter is an in-memory sliding-window limiter. It keeps a list of
// hit timestamps per key under a mutex and prunes lazily on access; no
// background goroutine. Suitable for a single instance.
type WindowLimiter struct {
	limit  int
	window time.Duration

	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// NewWindowLimiter creates an in-memory limiter allowing limit hits per window
func NewWindowLimiter(limit int, window time.Duration) *WindowLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &WindowLimiter{
		limit:  limit,
		window: window,
		hits:   make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow records a hit for key if the window has room and reports the outcome
func (l *WindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	kept := l.hits[key][:0]
	for _, hit := range l.hits[key] {
		if hit.After(cutoff) {
			kept = append(kept, hit)
		}
	}

	result := &Result{
		Limit:     l.limit,
		Window:    l.window,
		ResetTime: now.Add(l.window),
	}

	if len(kept) >= l.limit {
		l.hits[key] = kept
		result.Allowed = false
		result.Remaining = 0
		if len(kept) > 0 {
			result.ResetTime = kept[0].Add(l.window)
		}
		return result, nil
	}

	l.hits[key] = append(kept, now)
	result.Allowed = true
	result.Remaining = l.limit - len(kept) - 1
	return result, nil
}

// RedisLimiter shares one sliding window across server instances through the
// redis sorted-set counter.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedisLimiter creates a redis-backed limiter allowing limit hits per window
func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow implements Limiter
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	allowed, count, err := l.client.CheckRateLimit(ctx, "rate_limit:"+key, l.limit, l.window)
	if err != nil {
		return nil, err
	}

	remaining := l.limit - count - 1
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   allowed,
		Limit:     l.limit,
		Remaining: remaining,
		Window:    l.window,
		ResetTime: time.Now().Add(l.window),
	}, nil
}

// HTTPMiddleware applies the limiter per request key. Health probes are
// skipped so monitoring never starves. Limiter backend errors fail open; a
// broken redis must not take chat traffic down with it.
func HTTPMiddleware(limiter Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil || strings.HasPrefix(r.URL.Path, "/api/v1/health") {
				next.ServeHTTP(w, r)
				return
			}

			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			result, err := limiter.Allow(r.Context(), key)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime.Unix()))

			if !result.Allowed {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(result.Window.Seconds())))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, `{"error":"rate limit exceeded"}`)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// IPBasedKey keys the limiter by originating client address
func IPBasedKey(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		// First hop is the original client.
		if idx := strings.IndexByte(ip, ','); idx > 0 {
			ip = ip[:idx]
		}
		ip = strings.TrimSpace(ip)
	}
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
		if idx := strings.LastIndexByte(ip, ':'); idx > 0 {
			ip = ip[:idx]
		}
	}
	return "ip:" + ip
}

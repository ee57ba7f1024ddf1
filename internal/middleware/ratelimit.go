package middleware

import (
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/harliandi/go-quadtree/pkg/metrics"
)

// RateLimiter is a per-client token bucket
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*bucket
	rate   float64       // tokens per second
	burst  float64       // bucket capacity
	ttl    time.Duration // idle time before a client's bucket is dropped
	done   chan struct{}
	stop   sync.Once
}

type bucket struct {
	tokens  float64
	lastRef time.Time
}

// NewRateLimiter creates a limiter allowing rate requests per second with
// bursts up to burst, and starts its cleanup loop
func NewRateLimiter(rate, burst int) *RateLimiter {
	rl := &RateLimiter{
		limits: make(map[string]*bucket),
		rate:   float64(rate),
		burst:  float64(max(burst, 1)),
		ttl:    5 * time.Minute,
		done:   make(chan struct{}),
	}
	go rl.cleanup(time.Minute)
	return rl
}

// Allow takes one token from the client's bucket
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.limits[client]
	if !ok {
		rl.limits[client] = &bucket{tokens: rl.burst - 1, lastRef: now}
		return true
	}

	b.tokens = min(rl.burst, b.tokens+now.Sub(b.lastRef).Seconds()*rl.rate)
	b.lastRef = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Clients returns the number of tracked clients
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limits)
}

// Stop ends the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.stop.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.evict(now)
		}
	}
}

// evict drops buckets idle for longer than the ttl
func (rl *RateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for client, b := range rl.limits {
		if now.Sub(b.lastRef) > rl.ttl {
			delete(rl.limits, client)
		}
	}
}

// Middleware rejects clients that exhausted their bucket with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if exemptPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		ip := clientIP(r)
		if !rl.Allow(ip) {
			log.Printf("Rate limit exceeded for IP: %s", ip)
			metrics.RecordRateLimitExceeded(ipPrefix(ip))
			writeJSONError(w, http.StatusTooManyRequests, "Rate limit exceeded", "", 1)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimit returns rate limiting middleware backed by a new RateLimiter
func RateLimit(rate, burst int) func(http.Handler) http.Handler {
	return NewRateLimiter(rate, burst).Middleware
}

// clientIP prefers proxy headers and falls back to the connection address
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ipPrefix coarsens an IP for privacy-preserving metric labels
func ipPrefix(ip string) string {
	parsed := net.ParseIP(ip)
	switch {
	case parsed == nil:
		return "unknown"
	case parsed.To4() != nil:
		return parsed.To4().Mask(net.CIDRMask(8, 32)).String() + "/8"
	default:
		return parsed.Mask(net.CIDRMask(16, 128)).String() + "/16"
	}
}

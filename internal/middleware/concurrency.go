package middleware

import (
	"log"
	"net/http"
	"sync/atomic"

	"github.com/harliandi/go-quadtree/pkg/metrics"
)

// ConcurrencyLimiter caps in-flight compressions. Each compression runs its
// own trial pool, so this bounds total CPU fan-out.
type ConcurrencyLimiter struct {
	semaphore chan struct{}
	active    atomic.Int64
	max       int
}

// NewConcurrencyLimiter creates a limiter admitting at most max requests
func NewConcurrencyLimiter(max int) *ConcurrencyLimiter {
	if max < 1 {
		max = 1
	}
	return &ConcurrencyLimiter{
		semaphore: make(chan struct{}, max),
		max:       max,
	}
}

// Acquire takes a slot without blocking. Returns false if the limit is reached.
func (cl *ConcurrencyLimiter) Acquire() bool {
	select {
	case cl.semaphore <- struct{}{}:
		metrics.UpdateConcurrency(int(cl.active.Add(1)))
		return true
	default:
		return false
	}
}

// Release frees a slot taken by Acquire
func (cl *ConcurrencyLimiter) Release() {
	<-cl.semaphore
	metrics.UpdateConcurrency(int(cl.active.Add(-1)))
}

// Active returns the number of admitted requests
func (cl *ConcurrencyLimiter) Active() int {
	return int(cl.active.Load())
}

// Middleware rejects requests over the limit with 503
func (cl *ConcurrencyLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if exemptPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		if !cl.Acquire() {
			log.Printf("Concurrency limit reached: %d/%d", cl.Active(), cl.max)
			metrics.RecordConcurrencyLimitExceeded()
			writeJSONError(w, http.StatusServiceUnavailable, "Service busy, please try again", "", 1)
			return
		}
		defer cl.Release()
		next.ServeHTTP(w, r)
	})
}

// ConcurrencyLimit returns middleware backed by a new ConcurrencyLimiter
func ConcurrencyLimit(max int) func(http.Handler) http.Handler {
	return NewConcurrencyLimiter(max).Middleware
}

package middleware

import (
	"log"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/harliandi/go-quadtree/pkg/metrics"
)

// Logger logs each request with its status, size and compression run id,
// and records request metrics
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWrapper{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		elapsed := time.Since(start)
		if runID := wrapped.Header().Get("X-Run-ID"); runID != "" {
			log.Printf("%s %s %d %dB %v run=%s", r.Method, r.URL.Path, wrapped.status, wrapped.written, elapsed, runID)
		} else {
			log.Printf("%s %s %d %dB %v", r.Method, r.URL.Path, wrapped.status, wrapped.written, elapsed)
		}

		// /metrics is excluded to avoid recording the scraper itself
		if r.URL.Path != "/metrics" {
			metrics.RecordRequest(r.Method, routeLabel(r.URL.Path), strconv.Itoa(wrapped.status), elapsed.Seconds())
		}
	})
}

// Recovery turns a handler panic into a JSON 500
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("PANIC recovered on %s %s: %v\n%s", r.Method, r.URL.Path, err, debug.Stack())
				writeJSONError(w, http.StatusInternalServerError, "Internal server error", "Request failed unexpectedly", 0)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

type responseWrapper struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *responseWrapper) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseWrapper) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harliandi/go-quadtree/internal/compressor"
	"github.com/harliandi/go-quadtree/internal/config"
	"github.com/harliandi/go-quadtree/internal/handler"
	"github.com/harliandi/go-quadtree/internal/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	opts, err := compressor.OptionsFromConfig(cfg)
	if err != nil {
		log.Printf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	rl := middleware.NewRateLimiter(cfg.RateLimitPerSec, cfg.RateLimitBurst)
	defer rl.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      newRouter(cfg, opts, rl),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // threshold searches on large images take a while
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Starting quadtree compression API on %s", server.Addr)
	log.Printf("Method: %s, threshold: %g, min block: %d, target: %.2f, format: %s, measure: %s",
		opts.Params.Method, opts.Params.Threshold, opts.Params.MinBlockSize, opts.Params.TargetRatio, opts.Format, opts.Measure)
	log.Printf("Max upload: %dMB, Max concurrent: %d, Rate limit: %d/sec, Trial workers: %d",
		cfg.MaxUploadMB, cfg.MaxConcurrent, cfg.RateLimitPerSec, cfg.WorkerCount)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- server.ListenAndServe() }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server error: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		log.Printf("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown error: %v", err)
		}
	}
}

// newRouter wires the endpoints behind the middleware chain, outermost first:
// security headers, per-IP rate limit, global concurrency limit, panic
// recovery, access log.
func newRouter(cfg *config.Config, opts compressor.Options, rl *middleware.RateLimiter) http.Handler {
	h := handler.New(opts, cfg.MaxUploadMB)

	mux := http.NewServeMux()
	mux.HandleFunc("/compress", h.Compress)
	mux.HandleFunc("/health", h.Health)
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.Security(
		rl.Middleware(
			middleware.ConcurrencyLimit(cfg.MaxConcurrent)(
				middleware.Recovery(
					middleware.Logger(mux),
				),
			),
		),
	)
}

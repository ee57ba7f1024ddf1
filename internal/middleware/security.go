package middleware

import (
	"net/http"
)

// exposedHeaders lets browser clients read the compression stats
const exposedHeaders = "X-Run-ID, X-Quadtree-Depth, X-Quadtree-Nodes, X-Quadtree-Leaves, X-Compression-Ratio, X-Threshold, X-Search-Status"

// Security adds security-related headers to all responses
func Security(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Content-Security-Policy", "default-src 'none'")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		h.Set("Access-Control-Expose-Headers", exposedHeaders)
		// Every result is computed per upload
		h.Set("Cache-Control", "no-store")

		if r.TLS != nil {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

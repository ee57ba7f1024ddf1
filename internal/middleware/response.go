package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeJSONError writes a JSON error body. retryAfter > 0 sets Retry-After in seconds.
func writeJSONError(w http.ResponseWriter, status int, msg, detail string, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: msg, Message: detail})
}

// exempt paths bypass admission control so probes and scrapes keep working under load
var exemptPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// routeLabel bounds the metrics label set to known routes
func routeLabel(path string) string {
	switch path {
	case "/compress", "/health", "/metrics":
		return path
	}
	return "other"
}

package httputil

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// RetryAfter writes a throttled/locked response carrying the countdown the
// UI renders, plus a standard Retry-After header.
func RetryAfter(w http.ResponseWriter, status int, message string, seconds int64) {
	w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	JSON(w, status, map[string]any{
		"error":               message,
		"retry_after_seconds": seconds,
	})
}

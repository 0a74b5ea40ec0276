package middleware

import "net/http"

// SecurityHeaders applies OWASP-recommended security headers.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// X-Content-Type-Options - prevents MIME sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// X-Frame-Options - prevents clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			// Referrer-Policy - controls referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Cache-Control - auth responses must never be cached
			w.Header().Set("Cache-Control", "no-store")

			next.ServeHTTP(w, r)
		})
	}
}

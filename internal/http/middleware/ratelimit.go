package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/brewschews/authgate/internal/httputil"
)

// BurstGuardConfig holds configuration for the transport-level IP limiter.
//
// This guard is independent of the audit-log sliding window inside the
// gate: it exists to shed request floods cheaply before any database work,
// while the gate's limiter enforces the authentication policy proper.
type BurstGuardConfig struct {
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// BurstGuard creates an IP-based rate limiter middleware with logging.
func BurstGuard(cfg BurstGuardConfig) func(http.Handler) http.Handler {
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("burst guard tripped",
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
					"user_agent", r.UserAgent(),
				)
			}
			httputil.Error(w, http.StatusTooManyRequests, "too many requests. please try again later")
		}),
	)
}

// NoBurstGuard returns a no-op middleware when the guard is disabled.
func NoBurstGuard() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

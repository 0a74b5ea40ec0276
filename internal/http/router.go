package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/brewschews/authgate/internal/http/features/account"
	"github.com/brewschews/authgate/internal/http/features/me"
	"github.com/brewschews/authgate/internal/http/features/session"
	"github.com/brewschews/authgate/internal/http/middleware"
	"github.com/brewschews/authgate/internal/httputil"
	"github.com/brewschews/authgate/pkg/auth"
	"github.com/brewschews/authgate/pkg/repository"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger             *slog.Logger
	Gate               *auth.Gate
	SessionService     *auth.SessionService
	EmailCipher        *auth.EmailCipher
	UsersRepo          *repository.UsersRepository
	BurstGuardEnabled  bool
	BurstGuardRequests int
	BurstGuardWindow   time.Duration
	MaxRequestBodySize int64
	CookieSecure       bool
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.RequestSizeLimit(cfg.MaxRequestBodySize))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	cookieConfig := httputil.DefaultCookieConfig()
	cookieConfig.Secure = cfg.CookieSecure

	burstGuard := middleware.NoBurstGuard()
	if cfg.BurstGuardEnabled {
		burstGuard = middleware.BurstGuard(middleware.BurstGuardConfig{
			Requests: cfg.BurstGuardRequests,
			Window:   cfg.BurstGuardWindow,
			Logger:   cfg.Logger,
		})
	}

	// Signup / login go through the gate; the burst guard only sheds
	// floods before the gate's own policy limiter runs.
	accountHandler := account.NewHandler(cfg.Logger, cfg.Gate, cfg.SessionService, cookieConfig)
	r.Group(func(r chi.Router) {
		r.Use(burstGuard)
		r.Post("/v1/auth/signup", accountHandler.Signup)
		r.Post("/v1/auth/login", accountHandler.Login)
	})

	// Session routes
	sessionHandler := session.NewHandler(cookieConfig)
	r.Post("/v1/auth/logout", sessionHandler.Logout)

	// Protected profile route
	meHandler := me.NewHandler(cfg.Logger, cfg.UsersRepo, cfg.EmailCipher)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.SessionService))
		r.Get("/v1/me", meHandler.GetMe)
		r.Put("/v1/me/email", meHandler.UpdateEmail)
	})

	return r
}

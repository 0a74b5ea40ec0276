package account

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/brewschews/authgate/internal/httputil"
	"github.com/brewschews/authgate/pkg/auth"
)

// Handler handles signup and login endpoints. It translates HTTP requests
// into gate decisions and gate decisions into responses; every policy
// judgment lives in the gate.
type Handler struct {
	logger       *slog.Logger
	gate         *auth.Gate
	sessions     *auth.SessionService
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new account handler.
func NewHandler(logger *slog.Logger, gate *auth.Gate, sessions *auth.SessionService, cookieConfig httputil.CookieConfig) *Handler {
	return &Handler{
		logger:       logger,
		gate:         gate,
		sessions:     sessions,
		cookieConfig: cookieConfig,
	}
}

// SignupRequest represents a registration request.
type SignupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Identifier string `json:"identifier"` // username or email
	Password   string `json:"password"`
}

// UserResponse is the user payload returned after signup or login.
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Signup handles user registration.
// POST /v1/auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.gate.AttemptSignup(r.Context(), auth.SignupRequest{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	}, httputil.ClientIP(r), r.UserAgent())

	switch result.Status {
	case auth.SignupThrottled:
		httputil.RetryAfter(w, http.StatusTooManyRequests,
			"too many signup attempts from this address. please try again later", result.SecondsRemaining)

	case auth.SignupValidationFailed:
		httputil.JSON(w, http.StatusBadRequest, map[string]any{
			"error":        "validation failed",
			"field_errors": result.FieldErrors,
		})

	case auth.SignupCreated:
		token, err := h.sessions.IssueAccessToken(result.User)
		if err != nil {
			h.logger.Error("failed to issue session after signup", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "signup succeeded but session could not be created")
			return
		}
		httputil.SetAuthCookie(w, token, h.sessions.AccessTokenTTL(), h.cookieConfig)
		httputil.JSON(w, http.StatusCreated, map[string]any{
			"user": UserResponse{
				ID:       result.User.ID.String(),
				Username: result.User.Username,
			},
			"access_token": token,
		})
	}
}

// Login handles user authentication.
// POST /v1/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Identifier == "" || req.Password == "" {
		httputil.Error(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	result := h.gate.AttemptLogin(r.Context(), req.Identifier, req.Password, httputil.ClientIP(r), r.UserAgent())

	switch result.Status {
	case auth.LoginThrottled:
		httputil.RetryAfter(w, http.StatusTooManyRequests,
			"too many failed attempts from this address. please try again later", result.SecondsRemaining)

	case auth.LoginLocked:
		httputil.RetryAfter(w, http.StatusLocked,
			"this account is temporarily locked. please try again later", result.SecondsRemaining)

	case auth.LoginInvalidCredentials:
		// Unknown identifier and wrong password render identically so the
		// response never confirms whether an account exists.
		httputil.Error(w, http.StatusUnauthorized, "invalid username or password")

	case auth.LoginAuthenticated:
		token, err := h.sessions.IssueAccessToken(result.User)
		if err != nil {
			h.logger.Error("failed to issue session after login", "error", err)
			httputil.Error(w, http.StatusInternalServerError, "login succeeded but session could not be created")
			return
		}
		httputil.SetAuthCookie(w, token, h.sessions.AccessTokenTTL(), h.cookieConfig)
		httputil.JSON(w, http.StatusOK, map[string]any{
			"user": UserResponse{
				ID:       result.User.ID.String(),
				Username: result.User.Username,
			},
			"access_token": token,
		})
	}
}

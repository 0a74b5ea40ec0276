package session

import (
	"net/http"

	"github.com/brewschews/authgate/internal/httputil"
)

// Handler handles session endpoints. Access tokens are stateless, so
// logout is purely a cookie clear on the client side of the connection.
type Handler struct {
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new session handler.
func NewHandler(cookieConfig httputil.CookieConfig) *Handler {
	return &Handler{cookieConfig: cookieConfig}
}

// Logout clears the auth cookie.
// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	httputil.ClearAuthCookie(w, h.cookieConfig)
	httputil.JSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

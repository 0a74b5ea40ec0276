package me

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/brewschews/authgate/internal/http/middleware"
	"github.com/brewschews/authgate/internal/httputil"
	"github.com/brewschews/authgate/pkg/auth"
	"github.com/brewschews/authgate/pkg/domain"
)

// UserStore is the slice of the user repository the profile endpoints use.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ExistsByEmailDigest(ctx context.Context, digest string) (bool, error)
	UpdateEmail(ctx context.Context, id uuid.UUID, encryptedEmail []byte, digest *string) error
}

// Handler handles the authenticated profile endpoints.
type Handler struct {
	logger *slog.Logger
	users  UserStore
	cipher *auth.EmailCipher
}

// NewHandler creates a new profile handler.
func NewHandler(logger *slog.Logger, users UserStore, cipher *auth.EmailCipher) *Handler {
	return &Handler{
		logger: logger,
		users:  users,
		cipher: cipher,
	}
}

// MeResponse is the profile payload.
type MeResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// GetMe returns the current user.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("failed to load user", "user_id", userID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to load profile")
		return
	}

	// A record whose ciphertext no longer verifies degrades to a profile
	// without an email rather than failing the whole read.
	email, err := h.cipher.Decrypt(user.EncryptedEmail)
	if err != nil {
		h.logger.Error("failed to decrypt email for display", "user_id", userID, "error", err)
		email = ""
	}

	httputil.JSON(w, http.StatusOK, MeResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    email,
	})
}

// EmailUpdateRequest carries the replacement address.
type EmailUpdateRequest struct {
	Email string `json:"email"`
}

// UpdateEmail replaces the stored email. The new address is re-encrypted
// and its digest recomputed so uniqueness and login-by-email keep working.
// PUT /v1/me/email
func (h *Handler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		httputil.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req EmailUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if err := auth.ValidateEmail(email); err != nil {
		httputil.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	digest := auth.EmailDigest(email)

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("failed to load user", "user_id", userID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to update email")
		return
	}

	// Keeping the same address is a no-op update; anyone else holding the
	// digest is a conflict.
	if user.EmailDigest == nil || *user.EmailDigest != digest {
		taken, err := h.users.ExistsByEmailDigest(r.Context(), digest)
		if err != nil {
			h.logger.Error("email uniqueness check failed", "user_id", userID, "error", err)
			httputil.Error(w, http.StatusInternalServerError, "failed to update email")
			return
		}
		if taken {
			httputil.Error(w, http.StatusConflict, "that email is already registered")
			return
		}
	}

	encrypted, err := h.cipher.Encrypt(email)
	if err != nil {
		h.logger.Error("email encryption failed", "user_id", userID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to update email")
		return
	}

	if err := h.users.UpdateEmail(r.Context(), userID, encrypted, &digest); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			httputil.Error(w, http.StatusNotFound, "user not found")
			return
		}
		// A concurrent change can win the digest index between the
		// pre-check and the update; same conflict, same response.
		if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			httputil.Error(w, http.StatusConflict, "that email is already registered")
			return
		}
		h.logger.Error("email update failed", "user_id", userID, "error", err)
		httputil.Error(w, http.StatusInternalServerError, "failed to update email")
		return
	}

	httputil.JSON(w, http.StatusOK, MeResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    email,
	})
}

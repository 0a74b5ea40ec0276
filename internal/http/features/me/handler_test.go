package me

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/brewschews/authgate/internal/http/middleware"
	"github.com/brewschews/authgate/pkg/auth"
	"github.com/brewschews/authgate/pkg/domain"
)

type fakeUserStore struct {
	users     map[uuid.UUID]*domain.User
	updateErr error
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) ExistsByEmailDigest(ctx context.Context, digest string) (bool, error) {
	for _, u := range f.users {
		if u.EmailDigest != nil && *u.EmailDigest == digest {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserStore) UpdateEmail(ctx context.Context, id uuid.UUID, encryptedEmail []byte, digest *string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.EncryptedEmail = encryptedEmail
	u.EmailDigest = digest
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *fakeUserStore, *auth.EmailCipher) {
	t.Helper()
	cipher, err := auth.NewEmailCipher(make([]byte, 32))
	if err != nil {
		t.Fatalf("NewEmailCipher() error = %v", err)
	}
	store := &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(logger, store, cipher), store, cipher
}

func getMe(handler *Handler, userID *uuid.UUID) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	if userID != nil {
		ctx := context.WithValue(req.Context(), middleware.UserIDKey, *userID)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	handler.GetMe(rec, req)
	return rec
}

func TestGetMe(t *testing.T) {
	handler, getter, cipher := newTestHandler(t)

	encrypted, err := cipher.Encrypt("alice@example.com")
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	user := &domain.User{
		ID:             uuid.New(),
		Username:       "alice",
		EncryptedEmail: encrypted,
	}
	getter.users[user.ID] = user

	rec := getMe(handler, &user.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp MeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != user.ID.String() || resp.Username != "alice" {
		t.Errorf("response = %+v, want alice's profile", resp)
	}
	if resp.Email != "alice@example.com" {
		t.Errorf("Email = %q, want the decrypted address", resp.Email)
	}
}

func TestGetMeUnauthenticated(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	rec := getMe(handler, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestGetMeUnknownUser(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	id := uuid.New()
	rec := getMe(handler, &id)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetMeDecryptFailureDegrades(t *testing.T) {
	handler, getter, _ := newTestHandler(t)

	// Ciphertext that no AEAD key will open.
	user := &domain.User{
		ID:             uuid.New(),
		Username:       "alice",
		EncryptedEmail: []byte("garbage-that-is-long-enough-to-look-real"),
	}
	getter.users[user.ID] = user

	rec := getMe(handler, &user.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; a bad ciphertext degrades, not fails", rec.Code)
	}

	var resp MeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Email != "" {
		t.Errorf("Email = %q, want empty on decryption failure", resp.Email)
	}
}

func putEmail(handler *Handler, userID *uuid.UUID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, "/v1/me/email", strings.NewReader(body))
	if userID != nil {
		ctx := context.WithValue(req.Context(), middleware.UserIDKey, *userID)
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	handler.UpdateEmail(rec, req)
	return rec
}

func TestUpdateEmail(t *testing.T) {
	handler, store, cipher := newTestHandler(t)

	user := &domain.User{ID: uuid.New(), Username: "alice"}
	oldDigest := auth.EmailDigest("old@example.com")
	user.EmailDigest = &oldDigest
	store.users[user.ID] = user

	rec := putEmail(handler, &user.ID, `{"email": "New@Example.COM"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s, want 200", rec.Code, rec.Body.String())
	}

	var resp MeResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Email != "new@example.com" {
		t.Errorf("Email = %q, want the normalized address", resp.Email)
	}

	stored := store.users[user.ID]
	if stored.EmailDigest == nil || *stored.EmailDigest != auth.EmailDigest("new@example.com") {
		t.Error("expected the stored digest to be recomputed")
	}
	plaintext, err := cipher.Decrypt(stored.EncryptedEmail)
	if err != nil || plaintext != "new@example.com" {
		t.Errorf("Decrypt() = (%q, %v), want the new address", plaintext, err)
	}
}

func TestUpdateEmailKeepsOwnAddress(t *testing.T) {
	handler, store, _ := newTestHandler(t)

	user := &domain.User{ID: uuid.New(), Username: "alice"}
	digest := auth.EmailDigest("alice@example.com")
	user.EmailDigest = &digest
	store.users[user.ID] = user

	// Re-submitting the current address is not a conflict with yourself.
	rec := putEmail(handler, &user.ID, `{"email": "alice@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestUpdateEmailConflict(t *testing.T) {
	handler, store, _ := newTestHandler(t)

	alice := &domain.User{ID: uuid.New(), Username: "alice"}
	aliceDigest := auth.EmailDigest("alice@example.com")
	alice.EmailDigest = &aliceDigest
	store.users[alice.ID] = alice

	bob := &domain.User{ID: uuid.New(), Username: "bob"}
	bobDigest := auth.EmailDigest("bob@example.com")
	bob.EmailDigest = &bobDigest
	store.users[bob.ID] = bob

	rec := putEmail(handler, &alice.ID, `{"email": "bob@example.com"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestUpdateEmailRaceLostOnDigestIndex(t *testing.T) {
	handler, store, _ := newTestHandler(t)

	user := &domain.User{ID: uuid.New(), Username: "alice"}
	store.users[user.ID] = user

	// The pre-check passes but a concurrent change wins the unique index
	// before the update lands. Still a conflict, not a server error.
	store.updateErr = domain.ErrEmailAlreadyRegistered

	rec := putEmail(handler, &user.ID, `{"email": "new@example.com"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestUpdateEmailInvalid(t *testing.T) {
	handler, store, _ := newTestHandler(t)

	user := &domain.User{ID: uuid.New(), Username: "alice"}
	store.users[user.ID] = user

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "{broken"},
		{name: "empty email", body: `{"email": ""}`},
		{name: "malformed email", body: `{"email": "not-an-email"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := putEmail(handler, &user.ID, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/brewschews/authgate/internal/httputil"
)

func TestLogoutClearsCookie(t *testing.T) {
	handler := NewHandler(httputil.DefaultCookieConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	handler.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "access_token" {
			cleared = c
		}
	}
	if cleared == nil {
		t.Fatal("expected an access_token cookie in the response")
	}
	if cleared.Value != "" || cleared.MaxAge >= 0 {
		t.Errorf("cookie = {Value: %q, MaxAge: %d}, want an expiring empty cookie", cleared.Value, cleared.MaxAge)
	}
}

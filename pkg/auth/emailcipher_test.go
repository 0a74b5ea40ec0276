package auth

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/brewschews/authgate/pkg/domain"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func TestNewEmailCipher_KeyLength(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		wantErr bool
	}{
		{name: "32 bytes", keyLen: 32, wantErr: false},
		{name: "16 bytes", keyLen: 16, wantErr: true},
		{name: "empty", keyLen: 0, wantErr: true},
		{name: "33 bytes", keyLen: 33, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEmailCipher(bytes.Repeat([]byte{1}, tt.keyLen))
			if (err != nil) != tt.wantErr {
				t.Errorf("NewEmailCipher() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEmailDigest_CaseInsensitive(t *testing.T) {
	emails := []string{
		"alice@example.com",
		"  alice@example.com  ",
		"ALICE@EXAMPLE.COM",
		strings.ToUpper("alice@example.com"),
	}

	want := EmailDigest("alice@example.com")
	if want == "" {
		t.Fatal("EmailDigest returned empty for a non-empty email")
	}
	if len(want) != 64 {
		t.Fatalf("EmailDigest length = %d, want 64 hex chars", len(want))
	}

	for _, e := range emails {
		if got := EmailDigest(e); got != want {
			t.Errorf("EmailDigest(%q) = %q, want %q", e, got, want)
		}
	}

	if EmailDigest("bob@example.com") == want {
		t.Error("different emails produced the same digest")
	}
	if EmailDigest("") != "" {
		t.Error("EmailDigest of empty email should be empty")
	}
}

func TestEmailCipher_RoundTrip(t *testing.T) {
	cipher, err := NewEmailCipher(testKey())
	if err != nil {
		t.Fatalf("NewEmailCipher failed: %v", err)
	}

	email := "alice@example.com"
	encrypted, err := cipher.Encrypt(email)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if bytes.Contains(encrypted, []byte(email)) {
		t.Error("ciphertext contains the plaintext email")
	}

	decrypted, err := cipher.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if decrypted != email {
		t.Errorf("Decrypt = %q, want %q", decrypted, email)
	}
}

func TestEmailCipher_NonceUniqueness(t *testing.T) {
	cipher, err := NewEmailCipher(testKey())
	if err != nil {
		t.Fatalf("NewEmailCipher failed: %v", err)
	}

	first, err := cipher.Encrypt("alice@example.com")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	second, err := cipher.Encrypt("alice@example.com")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if bytes.Equal(first, second) {
		t.Error("two encryptions of the same email produced identical ciphertext")
	}
}

func TestEmailCipher_EmptyEmail(t *testing.T) {
	cipher, err := NewEmailCipher(testKey())
	if err != nil {
		t.Fatalf("NewEmailCipher failed: %v", err)
	}

	encrypted, err := cipher.Encrypt("")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if encrypted != nil {
		t.Errorf("Encrypt of empty email = %v, want nil", encrypted)
	}

	decrypted, err := cipher.Decrypt(nil)
	if err != nil {
		t.Fatalf("Decrypt of nil failed: %v", err)
	}
	if decrypted != "" {
		t.Errorf("Decrypt of nil = %q, want empty", decrypted)
	}
}

func TestEmailCipher_DecryptionFailed(t *testing.T) {
	cipher, err := NewEmailCipher(testKey())
	if err != nil {
		t.Fatalf("NewEmailCipher failed: %v", err)
	}

	encrypted, err := cipher.Encrypt("alice@example.com")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	t.Run("tampered ciphertext", func(t *testing.T) {
		tampered := append([]byte(nil), encrypted...)
		tampered[len(tampered)-1] ^= 0xFF
		if _, err := cipher.Decrypt(tampered); !errors.Is(err, domain.ErrDecryptionFailed) {
			t.Errorf("Decrypt of tampered payload error = %v, want ErrDecryptionFailed", err)
		}
	})

	t.Run("truncated payload", func(t *testing.T) {
		if _, err := cipher.Decrypt(encrypted[:8]); !errors.Is(err, domain.ErrDecryptionFailed) {
			t.Errorf("Decrypt of truncated payload error = %v, want ErrDecryptionFailed", err)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := NewEmailCipher(bytes.Repeat([]byte{0x13}, 32))
		if err != nil {
			t.Fatalf("NewEmailCipher failed: %v", err)
		}
		if _, err := other.Decrypt(encrypted); !errors.Is(err, domain.ErrDecryptionFailed) {
			t.Errorf("Decrypt under wrong key error = %v, want ErrDecryptionFailed", err)
		}
	})
}

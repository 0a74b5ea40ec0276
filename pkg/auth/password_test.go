package auth

import (
	"strings"
	"testing"
)

func TestHashPassword_Format(t *testing.T) {
	hash, err := HashPassword("CorrectHorse#1Battery")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$") {
		t.Errorf("hash %q does not carry the argon2id prefix", hash)
	}
	if parts := strings.Split(hash, "$"); len(parts) != 6 {
		t.Errorf("hash has %d segments, want 6", len(parts))
	}
}

func TestHashPassword_SaltUniqueness(t *testing.T) {
	first, err := HashPassword("CorrectHorse#1Battery")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	second, err := HashPassword("CorrectHorse#1Battery")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if first == second {
		t.Error("two hashes of the same password are identical (salt reuse)")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("CorrectHorse#1Battery")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{
			name:     "correct password",
			password: "CorrectHorse#1Battery",
			hash:     hash,
			want:     true,
		},
		{
			name:     "wrong password",
			password: "WrongHorse#1Battery",
			hash:     hash,
			want:     false,
		},
		{
			name:     "malformed hash",
			password: "CorrectHorse#1Battery",
			hash:     "not-a-hash",
			want:     false,
		},
		{
			name:     "empty hash",
			password: "CorrectHorse#1Battery",
			hash:     "",
			want:     false,
		},
		{
			name:     "wrong algorithm marker",
			password: "CorrectHorse#1Battery",
			hash:     strings.Replace(hash, "argon2id", "argon2i", 1),
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifyPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestArgon2Hasher_Interface(t *testing.T) {
	var hasher PasswordHasher = Argon2Hasher{}

	hash, err := hasher.Hash("CorrectHorse#1Battery")
	if err != nil {
		t.Fatalf("Hash failed: %v", err)
	}
	if !hasher.Verify("CorrectHorse#1Battery", hash) {
		t.Error("Verify rejected the password it was hashed from")
	}
	if hasher.Verify("something-else", hash) {
		t.Error("Verify accepted a different password")
	}
}

package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/brewschews/authgate/pkg/domain"
)

const (
	emailKeyLen   = 32 // AES-256
	emailNonceLen = 12 // AES-GCM recommended nonce length
)

// EmailDigest returns the SHA-256 hex digest of the normalized email.
// The digest is deterministic and case-insensitive, so it can back a
// uniqueness constraint and equality lookups without ever decrypting
// stored addresses. Returns "" for an empty email.
func EmailDigest(email string) string {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// EmailCipher encrypts email addresses at rest with AES-256-GCM under a
// single process-wide key loaded at startup.
type EmailCipher struct {
	aead cipher.AEAD
}

// NewEmailCipher creates an EmailCipher from a 32-byte key.
func NewEmailCipher(key []byte) (*EmailCipher, error) {
	if len(key) != emailKeyLen {
		return nil, fmt.Errorf("email encryption key must be exactly %d bytes, got %d", emailKeyLen, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create email cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create email cipher: %w", err)
	}

	return &EmailCipher{aead: aead}, nil
}

// Encrypt encrypts a normalized email and returns nonce||ciphertext.
// A fresh random nonce is generated per call, so two encryptions of the
// same address never produce the same bytes. An empty email encrypts to
// nil so absent addresses stay absent in storage.
func (c *EmailCipher) Encrypt(email string) ([]byte, error) {
	if email == "" {
		return nil, nil
	}

	nonce := make([]byte, emailNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	return c.aead.Seal(nonce, nonce, []byte(email), nil), nil
}

// Decrypt reverses Encrypt. Returns domain.ErrDecryptionFailed when the
// payload is truncated, tampered with, or was sealed under a different key.
func (c *EmailCipher) Decrypt(encrypted []byte) (string, error) {
	if len(encrypted) == 0 {
		return "", nil
	}
	if len(encrypted) < emailNonceLen {
		return "", domain.ErrDecryptionFailed
	}

	nonce := encrypted[:emailNonceLen]
	ciphertext := encrypted[emailNonceLen:]

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", domain.ErrDecryptionFailed
	}
	return string(plaintext), nil
}

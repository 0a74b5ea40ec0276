package domain

import "errors"

// Authentication errors
var (
	ErrUserNotFound           = errors.New("user not found")
	ErrUserAlreadyExists      = errors.New("user already exists")
	ErrUsernameAlreadyExists  = errors.New("username already taken")
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidToken           = errors.New("invalid token")
)

// Validation errors
var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidUsername = errors.New("invalid username format")
	ErrWeakPassword    = errors.New("password does not meet requirements")
)

// Encryption errors
var (
	// ErrDecryptionFailed means a stored email could not be decrypted:
	// the authentication tag did not verify (tampered or corrupted data)
	// or the configured key is wrong.
	ErrDecryptionFailed = errors.New("encrypted email payload could not be decrypted")
)

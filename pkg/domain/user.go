package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a storefront account.
//
// The email is stored encrypted (EncryptedEmail) next to a deterministic
// SHA-256 digest (EmailDigest) used for uniqueness checks and
// login-by-email lookups, so the plaintext address never has to be
// decrypted to find a match.
type User struct {
	ID             uuid.UUID
	Username       string
	PasswordHash   string
	EncryptedEmail []byte
	EmailDigest    *string

	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastFailedLoginAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// decryptedEmail caches the plaintext after the first decryption.
	// Never persisted; dropped whenever the row is reloaded.
	decryptedEmail *string
}

// IsLocked returns true if the account is currently locked.
// Expiry is lazy: once LockedUntil passes this starts returning false;
// there is no background unlock job.
func (u *User) IsLocked() bool {
	return u.IsLockedAt(time.Now())
}

// IsLockedAt reports whether the account is locked at the given instant.
func (u *User) IsLockedAt(now time.Time) bool {
	if u.LockedUntil == nil {
		return false
	}
	return now.Before(*u.LockedUntil)
}

// LockSecondsRemaining returns the whole seconds until the lock expires,
// rounded up and never less than 1 while the account is locked.
// Returns 0 when the account is not locked.
func (u *User) LockSecondsRemaining(now time.Time) int64 {
	if !u.IsLockedAt(now) {
		return 0
	}
	secs := int64((u.LockedUntil.Sub(now) + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// CacheDecryptedEmail stores the plaintext email for later reads.
func (u *User) CacheDecryptedEmail(email string) {
	u.decryptedEmail = &email
}

// DecryptedEmail returns the cached plaintext email, if set.
func (u *User) DecryptedEmail() (string, bool) {
	if u.decryptedEmail == nil {
		return "", false
	}
	return *u.decryptedEmail, true
}

// LoginState is the lockout-relevant slice of a user row, returned by the
// repository after the atomic failure update so the caller can tell a plain
// password mismatch from the failure that tripped the lock.
type LoginState struct {
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastFailedLoginAt   *time.Time
}

// LockedAt reports whether the state is locked at the given instant.
func (s *LoginState) LockedAt(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

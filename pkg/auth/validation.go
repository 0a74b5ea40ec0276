package auth

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"

	"github.com/brewschews/authgate/pkg/domain"
)

// Username: 3-30 characters of letters, digits, periods, underscores, hyphens.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{3,30}$`)

// Special characters accepted by the password policy.
var passwordSpecialPattern = regexp.MustCompile(`[!@#$%^&*]`)

const (
	maxEmailLength    = 254 // RFC 5321
	minPasswordLength = 12
	maxIdentifierLen  = 254 // longest thing we echo into audit rows
)

// ValidateUsername checks the username format. Failures wrap
// domain.ErrInvalidUsername.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return fmt.Errorf("%w: choose 3-30 characters using letters, numbers, periods, underscores, or hyphens", domain.ErrInvalidUsername)
	}
	return nil
}

// ValidateEmail validates an email address for format and length.
// Failures wrap domain.ErrInvalidEmail.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email address is required", domain.ErrInvalidEmail)
	}
	if len(email) > maxEmailLength {
		return fmt.Errorf("%w: email address is too long (max %d characters)", domain.ErrInvalidEmail, maxEmailLength)
	}

	// mail.ParseAddress for basic RFC 5322 compliance
	if _, err := mail.ParseAddress(NormalizeEmail(email)); err != nil {
		return fmt.Errorf("%w: enter a valid email address", domain.ErrInvalidEmail)
	}
	return nil
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidatePasswordStrength checks the password against the signup policy:
// at least 12 characters with an uppercase letter, a digit, and one of
// the !@#$%^&* specials. Failures wrap domain.ErrWeakPassword.
func ValidatePasswordStrength(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters long", domain.ErrWeakPassword, minPasswordLength)
	}
	if !containsUppercase(password) {
		return fmt.Errorf("%w: must contain at least one uppercase letter", domain.ErrWeakPassword)
	}
	if !containsNumber(password) {
		return fmt.Errorf("%w: must contain at least one number", domain.ErrWeakPassword)
	}
	if !passwordSpecialPattern.MatchString(password) {
		return fmt.Errorf("%w: must contain at least one special character (!@#$%%^&*)", domain.ErrWeakPassword)
	}
	return nil
}

// SanitizeIdentifier prepares a submitted identifier for storage in an
// audit row: trims, strips control characters, and caps the length.
func SanitizeIdentifier(identifier string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(identifier))

	if len(cleaned) > maxIdentifierLen {
		cleaned = cleaned[:maxIdentifierLen]
	}
	return cleaned
}

// containsUppercase checks if string contains at least one uppercase letter.
func containsUppercase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// containsNumber checks if string contains at least one digit.
func containsNumber(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

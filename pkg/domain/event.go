package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind identifies the kind of authentication attempt.
type EventKind string

const (
	EventSignup EventKind = "signup"
	EventLogin  EventKind = "login"
)

// EventReason is a short code explaining why an attempt was rejected.
// Empty for successful attempts.
type EventReason string

const (
	ReasonUnknownIdentifier EventReason = "unknown_identifier"
	ReasonPasswordMismatch  EventReason = "password_mismatch"
	ReasonAccountLocked     EventReason = "account_locked"
	ReasonIPRateLimited     EventReason = "ip_rate_limited"
	ReasonValidationError   EventReason = "validation_error"
)

// AuthEvent is one immutable record of an authentication attempt.
//
// Exactly one event is written per signup or login attempt, after the
// decision is made, regardless of outcome. Events are never updated or
// deleted by the application; the sliding-window rate limiter reads them
// back by (kind, ip, created_at).
type AuthEvent struct {
	ID          uuid.UUID
	Kind        EventKind
	IPAddress   string
	Identifier  string     // username/email exactly as submitted (sanitized)
	EmailDigest *string    // digest of the submitted email, when one was given
	UserID      *uuid.UUID // set once a matching account was found
	Successful  bool
	Reason      EventReason
	UserAgent   string
	CreatedAt   time.Time
}

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brewschews/authgate/pkg/domain"
)

// Policy carries every tunable of the authentication gate. It is built
// once at startup and passed in, so tests can exercise different limits
// without process-wide state.
type Policy struct {
	// Signup throttling: counts all attempts, success or failure. A burst
	// of legitimate signups from one IP is throttled just like abuse.
	SignupWindow time.Duration
	SignupLimit  int

	// Login throttling: counts failures only. Successful logins never
	// consume the IP budget, however many occur.
	LoginWindow time.Duration
	LoginLimit  int

	// Account lockout.
	LockThreshold int
	LockDuration  time.Duration
}

// DefaultPolicy returns the production policy.
func DefaultPolicy() Policy {
	return Policy{
		SignupWindow:  time.Hour,
		SignupLimit:   5,
		LoginWindow:   15 * time.Minute,
		LoginLimit:    5,
		LockThreshold: 5,
		LockDuration:  60 * time.Minute,
	}
}

// SignupPolicy returns the signup rate-limit window.
func (p Policy) SignupPolicy() WindowPolicy {
	return WindowPolicy{Window: p.SignupWindow, Limit: p.SignupLimit}
}

// LoginPolicy returns the login rate-limit window.
func (p Policy) LoginPolicy() WindowPolicy {
	return WindowPolicy{Window: p.LoginWindow, Limit: p.LoginLimit, FailuresOnly: true}
}

// UserStore is the user-repository capability the gate consumes.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmailDigest(ctx context.Context, digest string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmailDigest(ctx context.Context, digest string) (bool, error)

	// RecordLoginFailure applies one failed attempt atomically: increments
	// the counter, stamps failedAt, and on the attempt that reaches the
	// threshold sets lockedUntil and resets the counter to zero in the
	// same operation. Returns the resulting state.
	RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, lockedUntil, failedAt time.Time) (*domain.LoginState, error)

	// ResetLoginFailures clears the failure counter, lock, and last-failure
	// timestamp. Called exactly on successful login.
	ResetLoginFailures(ctx context.Context, id uuid.UUID) error
}

// EventStore is the append side of the authentication event log.
type EventStore interface {
	Record(ctx context.Context, event *domain.AuthEvent) error
}

// LoginStatus is the decision of one login attempt.
type LoginStatus int

const (
	LoginAuthenticated LoginStatus = iota
	LoginInvalidCredentials
	LoginThrottled
	LoginLocked
)

// LoginResult is the outcome of AttemptLogin.
type LoginResult struct {
	Status LoginStatus

	// SecondsRemaining drives the countdown shown for throttled and
	// locked outcomes. Always >= 1 for those statuses.
	SecondsRemaining int64

	// User is set only when Status is LoginAuthenticated.
	User *domain.User
}

// SignupStatus is the decision of one signup attempt.
type SignupStatus int

const (
	SignupCreated SignupStatus = iota
	SignupValidationFailed
	SignupThrottled
)

// SignupResult is the outcome of AttemptSignup.
type SignupResult struct {
	Status           SignupStatus
	SecondsRemaining int64
	FieldErrors      map[string]string
	User             *domain.User
}

// SignupRequest carries the submitted registration fields.
type SignupRequest struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Gate decides, for every sign-in and sign-up attempt, whether the request
// may proceed, must be throttled, or must be rejected because the target
// account is locked. It writes exactly one audit event per attempt, after
// the decision is made.
type Gate struct {
	users   UserStore
	events  EventStore
	limiter *RateLimiter
	cipher  *EmailCipher
	hasher  PasswordHasher
	policy  Policy
	logger  *slog.Logger
	now     func() time.Time
}

// NewGate creates the authentication gate.
func NewGate(users UserStore, events EventStore, limiter *RateLimiter, cipher *EmailCipher, hasher PasswordHasher, policy Policy, logger *slog.Logger) *Gate {
	if hasher == nil {
		hasher = Argon2Hasher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		users:   users,
		events:  events,
		limiter: limiter,
		cipher:  cipher,
		hasher:  hasher,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

// AttemptLogin runs the login decision in strict order: IP rate limit,
// identifier resolution, lock check, password verification. The rate limit
// fires before any user is resolved, so it behaves identically whether the
// identifier turns out valid, invalid, or someone else's locked account.
func (g *Gate) AttemptLogin(ctx context.Context, identifier, password, ip, userAgent string) LoginResult {
	identifier = SanitizeIdentifier(identifier)

	// 1. IP rate limit, identifier-agnostic.
	if g.limiter.IsLimited(ctx, domain.EventLogin, ip, g.policy.LoginPolicy()) {
		secs, ok := g.limiter.SecondsRemaining(ctx, domain.EventLogin, ip, g.policy.LoginPolicy())
		if !ok {
			secs = 1
		}
		g.recordEvent(ctx, &domain.AuthEvent{
			Kind:       domain.EventLogin,
			IPAddress:  ip,
			Identifier: identifier,
			Successful: false,
			Reason:     domain.ReasonIPRateLimited,
			UserAgent:  userAgent,
		})
		return LoginResult{Status: LoginThrottled, SecondsRemaining: secs}
	}

	// 2. Resolve the identifier: email digest when it looks like an email,
	// case-insensitive username otherwise.
	user, emailDigest, err := g.resolveIdentifier(ctx, identifier)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		g.logger.Error("user lookup failed", "error", err)
	}
	if user == nil {
		g.recordEvent(ctx, &domain.AuthEvent{
			Kind:        domain.EventLogin,
			IPAddress:   ip,
			Identifier:  identifier,
			EmailDigest: emailDigest,
			Successful:  false,
			Reason:      domain.ReasonUnknownIdentifier,
			UserAgent:   userAgent,
		})
		// Indistinguishable from a wrong password.
		return LoginResult{Status: LoginInvalidCredentials}
	}

	// 3. Account lock, checked lazily by comparison.
	now := g.now()
	if user.IsLockedAt(now) {
		g.recordEvent(ctx, &domain.AuthEvent{
			Kind:        domain.EventLogin,
			IPAddress:   ip,
			Identifier:  identifier,
			EmailDigest: emailDigest,
			UserID:      &user.ID,
			Successful:  false,
			Reason:      domain.ReasonAccountLocked,
			UserAgent:   userAgent,
		})
		return LoginResult{Status: LoginLocked, SecondsRemaining: user.LockSecondsRemaining(now)}
	}

	// 4. Password verification; a failure may trip the lock.
	if !g.hasher.Verify(password, user.PasswordHash) {
		reason := domain.ReasonPasswordMismatch
		result := LoginResult{Status: LoginInvalidCredentials}

		state, err := g.users.RecordLoginFailure(ctx, user.ID, g.policy.LockThreshold, now.Add(g.policy.LockDuration), now)
		if err != nil {
			g.logger.Error("failed to record login failure", "user_id", user.ID, "error", err)
		} else if state.LockedAt(now) {
			// This failure reached the threshold: the account locked and
			// the counter reset in the same operation.
			reason = domain.ReasonAccountLocked
			user.LockedUntil = state.LockedUntil
			result = LoginResult{Status: LoginLocked, SecondsRemaining: user.LockSecondsRemaining(now)}
		}

		g.recordEvent(ctx, &domain.AuthEvent{
			Kind:        domain.EventLogin,
			IPAddress:   ip,
			Identifier:  identifier,
			EmailDigest: emailDigest,
			UserID:      &user.ID,
			Successful:  false,
			Reason:      reason,
			UserAgent:   userAgent,
		})
		return result
	}

	// 5. Success: mutation precedes the audit write.
	if err := g.users.ResetLoginFailures(ctx, user.ID); err != nil {
		g.logger.Error("failed to reset login failures", "user_id", user.ID, "error", err)
	} else {
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
		user.LastFailedLoginAt = nil
	}

	g.recordEvent(ctx, &domain.AuthEvent{
		Kind:        domain.EventLogin,
		IPAddress:   ip,
		Identifier:  identifier,
		EmailDigest: emailDigest,
		UserID:      &user.ID,
		Successful:  true,
		UserAgent:   userAgent,
	})
	return LoginResult{Status: LoginAuthenticated, User: user}
}

// AttemptSignup runs the signup decision: IP rate limit, field validation,
// account creation. Signup never touches lockout state; new accounts start
// with a zero counter and no lock.
func (g *Gate) AttemptSignup(ctx context.Context, req SignupRequest, ip, userAgent string) SignupResult {
	username := SanitizeIdentifier(req.Username)
	email := NormalizeEmail(req.Email)
	digest := EmailDigest(email)
	var digestPtr *string
	if digest != "" {
		digestPtr = &digest
	}

	// 1. IP rate limit. Counts every prior signup attempt from this IP,
	// successes included.
	if g.limiter.IsLimited(ctx, domain.EventSignup, ip, g.policy.SignupPolicy()) {
		secs, ok := g.limiter.SecondsRemaining(ctx, domain.EventSignup, ip, g.policy.SignupPolicy())
		if !ok {
			secs = 1
		}
		g.recordEvent(ctx, &domain.AuthEvent{
			Kind:        domain.EventSignup,
			IPAddress:   ip,
			Identifier:  username,
			EmailDigest: digestPtr,
			Successful:  false,
			Reason:      domain.ReasonIPRateLimited,
			UserAgent:   userAgent,
		})
		return SignupResult{Status: SignupThrottled, SecondsRemaining: secs}
	}

	// 2. Field validation.
	fieldErrors := g.validateSignup(ctx, username, email, digest, req.Password, req.ConfirmPassword)
	if len(fieldErrors) > 0 {
		g.recordEvent(ctx, &domain.AuthEvent{
			Kind:        domain.EventSignup,
			IPAddress:   ip,
			Identifier:  username,
			EmailDigest: digestPtr,
			Successful:  false,
			Reason:      domain.ReasonValidationError,
			UserAgent:   userAgent,
		})
		return SignupResult{Status: SignupValidationFailed, FieldErrors: fieldErrors}
	}

	// 3. Create the account: password hashed, email encrypted + digested.
	// Internal failures here still burn one audit event: every attempt
	// leaves exactly one row and counts toward the signup window.
	hash, err := g.hasher.Hash(req.Password)
	if err != nil {
		g.logger.Error("password hashing failed", "error", err)
		g.recordEvent(ctx, &domain.AuthEvent{
			Kind:        domain.EventSignup,
			IPAddress:   ip,
			Identifier:  username,
			EmailDigest: digestPtr,
			Successful:  false,
			Reason:      domain.ReasonValidationError,
			UserAgent:   userAgent,
		})
		return SignupResult{
			Status:      SignupValidationFailed,
			FieldErrors: map[string]string{"password": "could not process password"},
		}
	}

	encrypted, err := g.cipher.Encrypt(email)
	if err != nil {
		g.logger.Error("email encryption failed", "error", err)
		g.recordEvent(ctx, &domain.AuthEvent{
			Kind:        domain.EventSignup,
			IPAddress:   ip,
			Identifier:  username,
			EmailDigest: digestPtr,
			Successful:  false,
			Reason:      domain.ReasonValidationError,
			UserAgent:   userAgent,
		})
		return SignupResult{
			Status:      SignupValidationFailed,
			FieldErrors: map[string]string{"email": "could not process email address"},
		}
	}

	now := g.now()
	user := &domain.User{
		ID:             uuid.New(),
		Username:       username,
		PasswordHash:   hash,
		EncryptedEmail: encrypted,
		EmailDigest:    digestPtr,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	user.CacheDecryptedEmail(email)

	if err := g.users.Create(ctx, user); err != nil {
		// Unique-index race on username or digest surfaces here.
		g.logger.Error("user creation failed", "error", err)
		g.recordEvent(ctx, &domain.AuthEvent{
			Kind:        domain.EventSignup,
			IPAddress:   ip,
			Identifier:  username,
			EmailDigest: digestPtr,
			Successful:  false,
			Reason:      domain.ReasonValidationError,
			UserAgent:   userAgent,
		})

		fieldErrors := map[string]string{"username": "that account could not be created"}
		if errors.Is(err, domain.ErrUsernameAlreadyExists) {
			fieldErrors = map[string]string{"username": "that username is already taken"}
		} else if errors.Is(err, domain.ErrEmailAlreadyRegistered) {
			fieldErrors = map[string]string{"email": "that email is already registered"}
		}
		return SignupResult{Status: SignupValidationFailed, FieldErrors: fieldErrors}
	}

	g.recordEvent(ctx, &domain.AuthEvent{
		Kind:        domain.EventSignup,
		IPAddress:   ip,
		Identifier:  username,
		EmailDigest: digestPtr,
		UserID:      &user.ID,
		Successful:  true,
		UserAgent:   userAgent,
	})
	return SignupResult{Status: SignupCreated, User: user}
}

// resolveIdentifier finds the account for a submitted identifier. Email
// identifiers resolve through the digest so stored addresses never need
// decrypting; anything else is a case-insensitive username lookup.
func (g *Gate) resolveIdentifier(ctx context.Context, identifier string) (*domain.User, *string, error) {
	if strings.Contains(identifier, "@") {
		digest := EmailDigest(identifier)
		user, err := g.users.GetByEmailDigest(ctx, digest)
		return user, &digest, err
	}
	user, err := g.users.GetByUsername(ctx, identifier)
	return user, nil, err
}

func (g *Gate) validateSignup(ctx context.Context, username, email, digest, password, confirm string) map[string]string {
	fieldErrors := make(map[string]string)

	if err := ValidateUsername(username); err != nil {
		fieldErrors["username"] = err.Error()
	} else if taken, err := g.users.ExistsByUsername(ctx, username); err != nil {
		g.logger.Error("username uniqueness check failed", "error", err)
		fieldErrors["username"] = "could not verify username availability"
	} else if taken {
		fieldErrors["username"] = "that username is already taken"
	}

	if err := ValidateEmail(email); err != nil {
		fieldErrors["email"] = err.Error()
	} else if registered, err := g.users.ExistsByEmailDigest(ctx, digest); err != nil {
		g.logger.Error("email uniqueness check failed", "error", err)
		fieldErrors["email"] = "could not verify email availability"
	} else if registered {
		fieldErrors["email"] = "that email is already registered"
	}

	if err := ValidatePasswordStrength(password); err != nil {
		fieldErrors["password"] = err.Error()
	}
	if password != confirm {
		fieldErrors["confirm_password"] = "passwords do not match"
	}

	return fieldErrors
}

// recordEvent appends one audit event, best effort. A storage failure is
// logged and swallowed so an audit outage never blocks the authentication
// decision itself.
func (g *Gate) recordEvent(ctx context.Context, event *domain.AuthEvent) {
	event.ID = uuid.New()
	event.CreatedAt = g.now()
	if len(event.UserAgent) > 255 {
		event.UserAgent = event.UserAgent[:255]
	}

	if err := g.events.Record(ctx, event); err != nil {
		g.logger.Error("unable to persist authentication audit event",
			"kind", string(event.Kind), "ip", event.IPAddress, "error", err)
	}
}

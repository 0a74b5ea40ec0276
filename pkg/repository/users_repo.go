package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/brewschews/authgate/pkg/domain"
)

// UsersRepository handles user persistence.
type UsersRepository struct {
	db *sql.DB
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

const userColumns = `id, username, password_hash, encrypted_email, email_digest,
	       failed_login_attempts, locked_until, last_failed_login_at,
	       created_at, updated_at`

// Create creates a new user. Lockout state starts at its zero value.
// A unique-index race lost to a concurrent signup surfaces as the matching
// already-exists error.
func (r *UsersRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, username, password_hash, encrypted_email, email_digest,
		                   failed_login_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.PasswordHash, user.EncryptedEmail, user.EmailDigest,
		user.CreatedAt, user.UpdatedAt,
	)
	return mapUniqueViolation(err)
}

// mapUniqueViolation translates postgres unique violations on the users
// table into domain errors by constraint name.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return err
	}
	switch pqErr.Constraint {
	case "users_username_lower_idx":
		return domain.ErrUsernameAlreadyExists
	case "users_email_digest_idx":
		return domain.ErrEmailAlreadyRegistered
	default:
		return domain.ErrUserAlreadyExists
	}
}

// GetByID retrieves a user by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsername retrieves a user by case-insensitive username.
func (r *UsersRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(username) = LOWER($1)`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

// GetByEmailDigest retrieves a user by email digest. The digest backs all
// email equality lookups so stored addresses never need decrypting.
func (r *UsersRepository) GetByEmailDigest(ctx context.Context, digest string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email_digest = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, digest))
}

// ExistsByUsername checks if a user exists by case-insensitive username.
func (r *UsersRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE LOWER(username) = LOWER($1))`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, username).Scan(&exists)
	return exists, err
}

// ExistsByEmailDigest checks if any account already carries the digest.
func (r *UsersRepository) ExistsByEmailDigest(ctx context.Context, digest string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email_digest = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, digest).Scan(&exists)
	return exists, err
}

// RecordLoginFailure applies one failed login attempt in a single UPDATE.
// The increment, the threshold comparison, and the lock are one statement,
// so concurrent failures against the same row cannot interleave between
// read and write. On the failure that reaches the threshold the counter
// resets to zero in the same statement, so an expired lock starts clean
// rather than one failure away from re-locking.
func (r *UsersRepository) RecordLoginFailure(ctx context.Context, id uuid.UUID, threshold int, lockedUntil, failedAt time.Time) (*domain.LoginState, error) {
	query := `
		UPDATE users
		SET failed_login_attempts = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN 0
		        ELSE failed_login_attempts + 1
		    END,
		    locked_until = CASE
		        WHEN failed_login_attempts + 1 >= $2 THEN $3
		        ELSE locked_until
		    END,
		    last_failed_login_at = $4,
		    updated_at = $4
		WHERE id = $1
		RETURNING failed_login_attempts, locked_until, last_failed_login_at
	`
	state := &domain.LoginState{}
	err := r.db.QueryRowContext(ctx, query, id, threshold, lockedUntil, failedAt).Scan(
		&state.FailedLoginAttempts, &state.LockedUntil, &state.LastFailedLoginAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return state, nil
}

// ResetLoginFailures clears the failure counter and lockout. Called
// exactly on successful login.
func (r *UsersRepository) ResetLoginFailures(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0,
		    locked_until = NULL,
		    last_failed_login_at = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// UpdateEmail replaces the encrypted email and digest, recomputed by the
// caller. The digest changes iff the normalized address changes. Losing a
// race on the digest index surfaces as ErrEmailAlreadyRegistered, same as
// on Create.
func (r *UsersRepository) UpdateEmail(ctx context.Context, id uuid.UUID, encryptedEmail []byte, digest *string) error {
	query := `
		UPDATE users
		SET encrypted_email = $2, email_digest = $3, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, encryptedEmail, digest)
	if err != nil {
		return mapUniqueViolation(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UsersRepository) scanOne(row *sql.Row) (*domain.User, error) {
	user := &domain.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.EncryptedEmail, &user.EmailDigest,
		&user.FailedLoginAttempts, &user.LockedUntil, &user.LastFailedLoginAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

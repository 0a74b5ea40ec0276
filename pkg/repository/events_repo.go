package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/brewschews/authgate/pkg/domain"
)

// EventsRepository owns the append-only authentication_events log. The
// application never updates or deletes rows; the only readers are the
// sliding-window rate-limit queries, served by the
// (kind, ip_address, created_at) index.
type EventsRepository struct {
	db *sql.DB
}

// NewEventsRepository creates a new events repository.
func NewEventsRepository(db *sql.DB) *EventsRepository {
	return &EventsRepository{db: db}
}

// Record appends one authentication event.
func (r *EventsRepository) Record(ctx context.Context, event *domain.AuthEvent) error {
	query := `
		INSERT INTO authentication_events
			(id, kind, ip_address, identifier_submitted, email_digest,
			 user_id, successful, reason, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	reason := sql.NullString{String: string(event.Reason), Valid: event.Reason != ""}
	_, err := r.db.ExecContext(ctx, query,
		event.ID, string(event.Kind), event.IPAddress, event.Identifier, event.EmailDigest,
		event.UserID, event.Successful, reason, event.UserAgent, event.CreatedAt,
	)
	return err
}

// CountMatching counts events of the given kind from the given IP with
// created_at >= since, optionally filtered by outcome.
func (r *EventsRepository) CountMatching(ctx context.Context, kind domain.EventKind, ip string, since time.Time, successful *bool) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM authentication_events
		WHERE kind = $1 AND ip_address = $2 AND created_at >= $3
		  AND ($4::boolean IS NULL OR successful = $4)
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, string(kind), ip, since, successParam(successful)).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// OldestMatching returns the earliest created_at among the same filter
// set, or nil when no events match. That timestamp plus the window length
// is the rate-limit reset time.
func (r *EventsRepository) OldestMatching(ctx context.Context, kind domain.EventKind, ip string, since time.Time, successful *bool) (*time.Time, error) {
	query := `
		SELECT MIN(created_at)
		FROM authentication_events
		WHERE kind = $1 AND ip_address = $2 AND created_at >= $3
		  AND ($4::boolean IS NULL OR successful = $4)
	`
	var oldest sql.NullTime
	err := r.db.QueryRowContext(ctx, query, string(kind), ip, since, successParam(successful)).Scan(&oldest)
	if err != nil {
		return nil, err
	}
	if !oldest.Valid {
		return nil, nil
	}
	return &oldest.Time, nil
}

func successParam(successful *bool) sql.NullBool {
	if successful == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *successful, Valid: true}
}

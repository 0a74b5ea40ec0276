package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/brewschews/authgate/pkg/domain"
)

// EventCounter is the read side of the authentication event log, used for
// sliding-window rate-limit queries.
type EventCounter interface {
	// CountMatching counts events of the given kind from the given IP with
	// created_at >= since. A non-nil successful filters by outcome.
	CountMatching(ctx context.Context, kind domain.EventKind, ip string, since time.Time, successful *bool) (int, error)

	// OldestMatching returns the earliest created_at among the same filter
	// set, or nil when no events match.
	OldestMatching(ctx context.Context, kind domain.EventKind, ip string, since time.Time, successful *bool) (*time.Time, error)
}

// WindowPolicy describes one sliding-window limit.
type WindowPolicy struct {
	Window time.Duration
	Limit  int

	// FailuresOnly restricts the count to failed attempts. The login
	// window counts failures only; the signup window counts everything.
	FailuresOnly bool
}

// RateLimiter answers "has this IP produced too many matching events
// within the window" against the authentication event log. It shares no
// in-memory state between requests; every answer is a fresh query.
type RateLimiter struct {
	events EventCounter
	logger *slog.Logger
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter over the event log.
func NewRateLimiter(events EventCounter, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RateLimiter{
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// IsLimited reports whether the IP has reached the policy limit within the
// window. A failing store query fails open: rate limiting rides on the
// audit log, and an audit outage must never block all traffic.
func (l *RateLimiter) IsLimited(ctx context.Context, kind domain.EventKind, ip string, p WindowPolicy) bool {
	since := l.now().Add(-p.Window)
	count, err := l.events.CountMatching(ctx, kind, ip, since, p.successFilter())
	if err != nil {
		l.logger.Error("rate limit count query failed, failing open",
			"kind", string(kind), "ip", ip, "error", err)
		return false
	}
	return count >= p.Limit
}

// ResetAt returns the instant the oldest counted event leaves the window,
// i.e. when the IP stops being limited if no further events arrive.
func (l *RateLimiter) ResetAt(ctx context.Context, kind domain.EventKind, ip string, p WindowPolicy) (time.Time, bool) {
	since := l.now().Add(-p.Window)
	oldest, err := l.events.OldestMatching(ctx, kind, ip, since, p.successFilter())
	if err != nil {
		l.logger.Error("rate limit reset query failed",
			"kind", string(kind), "ip", ip, "error", err)
		return time.Time{}, false
	}
	if oldest == nil {
		return time.Time{}, false
	}
	return oldest.Add(p.Window), true
}

// SecondsRemaining returns the countdown to surface to the caller while
// the IP is limited: whole seconds until ResetAt, rounded up and clamped
// to [1, window] so a UI timer never shows zero or an impossible value.
// ok is false when the IP is not currently limited.
func (l *RateLimiter) SecondsRemaining(ctx context.Context, kind domain.EventKind, ip string, p WindowPolicy) (int64, bool) {
	if !l.IsLimited(ctx, kind, ip, p) {
		return 0, false
	}

	reset, ok := l.ResetAt(ctx, kind, ip, p)
	if !ok {
		return 0, false
	}

	remaining := reset.Sub(l.now())
	secs := int64((remaining + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if max := int64(p.Window / time.Second); secs > max {
		secs = max
	}
	return secs, true
}

func (p WindowPolicy) successFilter() *bool {
	if !p.FailuresOnly {
		return nil
	}
	failed := false
	return &failed
}

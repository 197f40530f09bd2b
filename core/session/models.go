package session

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Security status levels derived from a session's time-to-live.
const (
	LevelSecure   = "secure"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

type (
	// Session is the stored session record. The authentication collaborator
	// owns it; the monitor only reads ExpiresAt.
	Session struct {
		ID        string    `json:"id"`
		UserID    string    `json:"user_id"`
		Roles     []string  `json:"roles,omitempty"`
		CreatedAt time.Time `json:"created_at"` // UTC
		ExpiresAt time.Time `json:"expires_at"` // UTC
	}

	// SecurityStatus is derived from a session on every poll; never stored.
	SecurityStatus struct {
		Level       string `json:"level"`
		MinutesLeft *int   `json:"minutes_left,omitempty"`
	}

	// Store is the session storage contract of the auth collaborator.
	Store interface {
		GetSession(ctx context.Context, id string) (*Session, error)
		SaveSession(ctx context.Context, sess *Session) error
		// RefreshSession pushes the expiry ttl into the future.
		RefreshSession(ctx context.Context, id string, ttl time.Duration) (*Session, error)
		ClearSession(ctx context.Context, id string) error
		// ActiveSessions lists every stored session, expired ones included.
		ActiveSessions(ctx context.Context) ([]*Session, error)
	}
)

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// ComputeStatus derives the security status of a session at `now`.
// A nil session is secure: there is nothing to expire.
func ComputeStatus(s *Session, now time.Time, warnThreshold time.Duration) SecurityStatus {
	if s == nil {
		return SecurityStatus{Level: LevelSecure}
	}
	remaining := s.ExpiresAt.Sub(now)
	if remaining < 0 {
		return SecurityStatus{Level: LevelCritical}
	}

	mins := int(remaining.Minutes())
	status := SecurityStatus{Level: LevelSecure, MinutesLeft: &mins}
	if remaining <= warnThreshold {
		status.Level = LevelWarning
	}
	return status
}

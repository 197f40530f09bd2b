package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Security event types forwarded to the audit sink.
const (
	EventRateLimitExceeded = "rate_limit_exceeded"
	EventSuspiciousInput   = "suspicious_activity"
	EventCSRFViolation     = "csrf_violation"
	EventSessionError      = "session_error"
)

// Severity levels of a SecurityEvent.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// SecurityEvent is a structured record of a notable security-relevant occurrence.
type SecurityEvent struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	UserID   string    `json:"user_id,omitempty"` // opaque client id when unauthenticated
	Details  string    `json:"details"`
	Severity string    `json:"severity"`
	Time     time.Time `json:"time"` // UTC
}

func NewSecurityEvent(typ, userID, details, severity string) SecurityEvent {
	return SecurityEvent{
		ID:       uuid.New().String(),
		Type:     typ,
		UserID:   userID,
		Details:  details,
		Severity: severity,
		Time:     time.Now().UTC(),
	}
}

type (
	// AuditService is any service that can record security events.
	// It is fire-and-forget: implementations swallow their own failures;
	// a broken audit sink must never fail the guarded operation.
	AuditService interface {
		// RecordEvents records events concurrently.
		RecordEvents(events ...SecurityEvent)
	}

	// EventFilter narrows down a security event query.
	// Zero values mean "no constraint".
	EventFilter struct {
		Type     string
		Severity string
		UserID   string
		Since    time.Time
		Limit    int
	}

	// EventRepository persists security events.
	EventRepository interface {
		CreateEvent(ctx context.Context, ev SecurityEvent) error
		FilterEvents(ctx context.Context, filter EventFilter) ([]SecurityEvent, error)
		// PurgeEventsBefore deletes events older than t and reports how many were removed.
		PurgeEventsBefore(ctx context.Context, t time.Time) (int64, error)
	}
)

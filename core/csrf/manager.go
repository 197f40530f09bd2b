package csrf

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimuhq/ngao/core"
)

const (
	DefaultTokenTTL = 5 * time.Minute

	tokenByteLen = 32
)

type record struct {
	sessionID string
	issuedAt  time.Time
	expiresAt time.Time
}

// Manager issues per-session anti-forgery tokens and validates them on
// state-changing submissions. Tokens live only in process memory for the
// lifetime of their session; they expire passively.
type Manager struct {
	ttl    time.Duration
	audit  core.AuditService
	logger core.Logger

	mu     sync.Mutex
	tokens map[string]record

	sweepOnce sync.Once
	done      chan struct{}

	nowFunc func() time.Time // mockable
}

func NewManager(ttl time.Duration, audit core.AuditService, logger core.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Manager{
		ttl:     ttl,
		audit:   audit,
		logger:  logger,
		tokens:  make(map[string]record),
		done:    make(chan struct{}),
		nowFunc: time.Now,
	}
}

// Generate issues a fresh token bound to sessionID.
func (m *Manager) Generate(sessionID string) (string, error) {
	buf := make([]byte, tokenByteLen)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generating token")
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	now := m.nowFunc()
	m.mu.Lock()
	m.tokens[token] = record{
		sessionID: sessionID,
		issuedAt:  now,
		expiresAt: now.Add(m.ttl),
	}
	m.mu.Unlock()
	return token, nil
}

// Validate reports whether token was issued for exactly this sessionID and
// has not expired. An unknown token, an expired token and a session mismatch
// are indistinguishable to the caller; every failure records a single
// "csrf_violation" security event.
func (m *Manager) Validate(token, sessionID string) bool {
	if m.check(token, sessionID) {
		return true
	}
	m.recordViolation(sessionID)
	return false
}

// Rotate consumes token on a successful validation and returns a replacement
// for the next submission. Failed validations do not consume anything.
func (m *Manager) Rotate(token, sessionID string) (string, bool) {
	if !m.check(token, sessionID) {
		m.recordViolation(sessionID)
		return "", false
	}

	m.mu.Lock()
	delete(m.tokens, token)
	m.mu.Unlock()

	next, err := m.Generate(sessionID)
	if err != nil {
		if m.logger != nil {
			m.logger.Error(fmt.Sprintf("csrf: rotating token: %v", err))
		}
		return "", false
	}
	return next, true
}

func (m *Manager) check(token, sessionID string) bool {
	if token == "" || sessionID == "" {
		return false
	}

	m.mu.Lock()
	rec, ok := m.tokens[token]
	m.mu.Unlock()
	if !ok {
		return false
	}

	if subtle.ConstantTimeCompare([]byte(rec.sessionID), []byte(sessionID)) != 1 {
		return false
	}
	now := m.nowFunc()
	return !now.Before(rec.issuedAt) && now.Before(rec.expiresAt)
}

// StartSweep launches a periodic sweep of expired token records. Expiry is
// already enforced by check; the sweep only bounds memory.
func (m *Manager) StartSweep(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultTokenTTL
	}
	m.sweepOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					m.Sweep()
				case <-m.done:
					return
				}
			}
		}()
	})
}

// Stop cancels the sweep goroutine.
func (m *Manager) Stop() {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

// Sweep drops expired token records.
func (m *Manager) Sweep() {
	now := m.nowFunc()
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, rec := range m.tokens {
		if !now.Before(rec.expiresAt) {
			delete(m.tokens, token)
		}
	}
}

func (m *Manager) recordViolation(sessionID string) {
	defer func() {
		if rec := recover(); rec != nil && m.logger != nil {
			m.logger.Error(fmt.Sprintf("csrf: recording event: %v", rec))
		}
	}()
	if m.audit == nil {
		return
	}
	m.audit.RecordEvents(core.NewSecurityEvent(
		core.EventCSRFViolation,
		sessionID,
		"CSRF token validation failed",
		core.SeverityHigh,
	))
}

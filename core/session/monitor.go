package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/mwalimuhq/ngao/core"
)

const (
	DefaultPollInterval  = 30 * time.Second
	DefaultWarnThreshold = 5 * time.Minute
)

// Monitor continuously evaluates stored sessions' time-to-live. Crossing into
// critical clears the session record (forcing re-authentication); that is the
// monitor's only side effect beyond status reporting. Recovery from warning
// requires an explicit Extend call, never an automatic silent extension.
type Monitor struct {
	store         Store
	audit         core.AuditService
	logger        core.Logger
	pollInterval  time.Duration
	warnThreshold time.Duration
	sessionTTL    time.Duration

	mu      sync.Mutex
	started bool
	done    chan struct{}

	nowFunc func() time.Time // mockable
}

func NewMonitor(store Store, audit core.AuditService, logger core.Logger, conf *core.Config) *Monitor {
	m := &Monitor{
		store:         store,
		audit:         audit,
		logger:        logger,
		pollInterval:  DefaultPollInterval,
		warnThreshold: DefaultWarnThreshold,
		sessionTTL:    30 * time.Minute,
		nowFunc:       time.Now,
	}
	if conf != nil {
		m.pollInterval = conf.Guard.SessionPollInterval
		m.warnThreshold = conf.Guard.SessionWarnThreshold
		m.sessionTTL = conf.Guard.SessionTTL
	}
	return m
}

// Start launches the polling loop. Starting an already-started Monitor is a
// no-op; duplicate timers are the hazard here, not data races.
func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	m.done = make(chan struct{})

	go func(done chan struct{}) {
		ticker := time.NewTicker(m.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Poll(context.Background())
			case <-done:
				return
			}
		}
	}(m.done)
}

// Stop cancels the polling loop. The Monitor may be started again afterwards.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	m.started = false
	close(m.done)
}

// Poll recomputes every stored session's status, clearing the ones whose
// expiry has passed. Clearing removes the record from the store, so a session
// reaches the critical side effect exactly once.
func (m *Monitor) Poll(ctx context.Context) {
	sessions, err := m.store.ActiveSessions(ctx)
	if err != nil {
		m.recordError("", fmt.Sprintf("listing sessions: %v", err), core.SeverityMedium)
		return
	}

	now := m.nowFunc()
	for _, sess := range sessions {
		if !sess.Expired(now) {
			continue
		}
		if err := m.store.ClearSession(ctx, sess.ID); err != nil {
			m.recordError(sess.UserID, fmt.Sprintf("clearing expired session: %v", err), core.SeverityMedium)
			continue
		}
		m.recordError(sess.UserID, "session expired, re-authentication required", core.SeverityCritical)
	}
}

// Status derives the current security status of one session. A missing
// session is secure: nothing is left to expire.
func (m *Monitor) Status(ctx context.Context, sessionID string) (SecurityStatus, error) {
	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return SecurityStatus{Level: LevelSecure}, nil
		}
		return SecurityStatus{}, errors.Wrap(err, "getting session")
	}
	return ComputeStatus(sess, m.nowFunc(), m.warnThreshold), nil
}

// Extend pushes the session expiry forward on explicit user action. On
// failure the session keeps its current state; there is no automatic retry.
func (m *Monitor) Extend(ctx context.Context, sessionID string) (SecurityStatus, error) {
	sess, err := m.store.RefreshSession(ctx, sessionID, m.sessionTTL)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return SecurityStatus{}, err
		}
		m.recordError(sessionID, fmt.Sprintf("refreshing session: %v", err), core.SeverityMedium)
		return SecurityStatus{}, errors.Wrap(err, "refreshing session")
	}
	return ComputeStatus(sess, m.nowFunc(), m.warnThreshold), nil
}

func (m *Monitor) recordError(userID, details, severity string) {
	defer func() {
		if rec := recover(); rec != nil && m.logger != nil {
			m.logger.Error(fmt.Sprintf("session: recording event: %v", rec))
		}
	}()
	if m.audit == nil {
		return
	}
	m.audit.RecordEvents(core.NewSecurityEvent(core.EventSessionError, userID, details, severity))
}

package textrisk

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/mwalimuhq/ngao/core"
)

const (
	typingLimit  = 50
	typingWindow = time.Minute

	repeatThreshold = .9
)

type hit struct {
	count       int
	windowStart time.Time
	flagged     bool
}

// Tracker watches per-field submission patterns that the pure validator
// cannot see: typing speed and near-duplicate resubmissions. Findings are
// UX hints recorded as low-severity events, never blocks.
type Tracker struct {
	audit  core.AuditService
	logger core.Logger

	mu   sync.Mutex
	hits map[string]hit
	last map[string]string

	nowFunc func() time.Time // mockable
}

func NewTracker(audit core.AuditService, logger core.Logger) *Tracker {
	return &Tracker{
		audit:   audit,
		logger:  logger,
		hits:    make(map[string]hit),
		last:    make(map[string]string),
		nowFunc: time.Now,
	}
}

// RecordKeystroke counts one change of fieldKey and reports whether the field
// is being updated suspiciously fast (more than 50 times within a minute).
// The first crossing per window records a "suspicious_activity" event.
func (t *Tracker) RecordKeystroke(fieldKey string) bool {
	now := t.nowFunc()

	t.mu.Lock()
	h, ok := t.hits[fieldKey]
	if !ok || now.Sub(h.windowStart) >= typingWindow {
		h = hit{windowStart: now}
	}
	h.count++
	fast := h.count > typingLimit
	first := fast && !h.flagged
	if fast {
		h.flagged = true
	}
	t.hits[fieldKey] = h
	t.mu.Unlock()

	if first {
		t.record(fieldKey, "input changing too fast")
	}
	return fast
}

// CheckRepeat remembers the submitted value for fieldKey and reports whether
// it is a near-duplicate of the previous submission. Repeated near-identical
// content is a spam signal worth surfacing, not rejecting.
func (t *Tracker) CheckRepeat(fieldKey, value string) bool {
	t.mu.Lock()
	prev, ok := t.last[fieldKey]
	t.last[fieldKey] = value
	t.mu.Unlock()

	if !ok || value == "" {
		return false
	}
	if similarity(prev, value) < repeatThreshold {
		return false
	}
	t.record(fieldKey, "near-duplicate content resubmitted")
	return true
}

// similarity returns the ratio of matching characters between a and b, in [0, 1].
func similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).QuickRatio()
}

func (t *Tracker) record(fieldKey, details string) {
	defer func() {
		if rec := recover(); rec != nil && t.logger != nil {
			t.logger.Error(fmt.Sprintf("textrisk: recording event: %v", rec))
		}
	}()
	if t.audit == nil {
		return
	}
	t.audit.RecordEvents(core.NewSecurityEvent(
		core.EventSuspiciousInput,
		fieldKey,
		details,
		core.SeverityLow,
	))
}

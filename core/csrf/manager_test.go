package csrf

import (
	"sync"
	"testing"
	"time"

	"github.com/mwalimuhq/ngao/core"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []core.SecurityEvent
}

func (r *eventRecorder) RecordEvents(events ...core.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *eventRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestGenerateValidate(t *testing.T) {
	m := NewManager(5*time.Minute, nil, nil)

	token, err := m.Generate("S1")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if token == "" {
		t.Fatal("Generate() returned an empty token")
	}

	tests := []struct {
		name      string
		token     string
		sessionID string
		want      bool
	}{
		{name: "valid", token: token, sessionID: "S1", want: true},
		{name: "session mismatch", token: token, sessionID: "S2"},
		{name: "unknown token", token: "bogus", sessionID: "S1"},
		{name: "empty token", sessionID: "S1"},
		{name: "empty session", token: token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Validate(tt.token, tt.sessionID); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateExpiry(t *testing.T) {
	m := NewManager(5*time.Minute, nil, nil)

	now := time.Now()
	m.nowFunc = func() time.Time { return now }

	token, err := m.Generate("S1")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if !m.Validate(token, "S1") {
		t.Fatal("fresh token should validate")
	}

	now = now.Add(5*time.Minute + time.Second)
	if m.Validate(token, "S1") {
		t.Error("expired token should not validate")
	}
}

func TestRotate(t *testing.T) {
	m := NewManager(5*time.Minute, nil, nil)

	t1, err := m.Generate("S1")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}

	t2, ok := m.Rotate(t1, "S1")
	if !ok {
		t.Fatal("Rotate() failed on a valid token")
	}
	if t2 == t1 {
		t.Error("rotated token must differ from the consumed one")
	}
	if m.Validate(t1, "S1") {
		t.Error("consumed token must not validate again")
	}
	if !m.Validate(t2, "S1") {
		t.Error("rotated token should validate")
	}
}

func TestRotateRejectsMismatch(t *testing.T) {
	rec := &eventRecorder{}
	m := NewManager(5*time.Minute, rec, nil)

	t1, err := m.Generate("S1")
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if _, ok := m.Rotate(t1, "S2"); ok {
		t.Fatal("Rotate() succeeded for the wrong session")
	}
	// the failed rotation must not consume the token
	if !m.Validate(t1, "S1") {
		t.Error("token was consumed by a failed rotation")
	}
	if rec.len() != 1 {
		t.Errorf("csrf_violation events = %d, want 1", rec.len())
	}
}

func TestViolationEvent(t *testing.T) {
	rec := &eventRecorder{}
	m := NewManager(5*time.Minute, rec, nil)

	if m.Validate("bogus", "S1") {
		t.Fatal("bogus token validated")
	}
	if rec.len() != 1 {
		t.Fatalf("csrf_violation events = %d, want 1", rec.len())
	}
	ev := rec.events[0]
	if ev.Type != core.EventCSRFViolation || ev.Severity != core.SeverityHigh {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestSweep(t *testing.T) {
	m := NewManager(5*time.Minute, nil, nil)

	now := time.Now()
	m.nowFunc = func() time.Time { return now }

	stale, _ := m.Generate("S1")
	now = now.Add(6 * time.Minute)
	fresh, _ := m.Generate("S1")

	m.Sweep()

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[stale]; ok {
		t.Error("expired token survived the sweep")
	}
	if _, ok := m.tokens[fresh]; !ok {
		t.Error("live token was evicted")
	}
}

package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/mwalimuhq/ngao/core"
)

// eventRecorder collects recorded events synchronously.
type eventRecorder struct {
	mu     sync.Mutex
	events []core.SecurityEvent
}

func (r *eventRecorder) RecordEvents(events ...core.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, events...)
}

func (r *eventRecorder) count(typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestAllowWithinWindow(t *testing.T) {
	rec := &eventRecorder{}
	lim := NewLimiter(time.Minute, rec, nil)

	// 5 login attempts pass, the 6th is blocked and logs exactly one event
	for i := 1; i <= 5; i++ {
		if !lim.Allow(ActionLogin, "clientX") {
			t.Fatalf("Allow() attempt %d = false, want true", i)
		}
	}
	for i := 6; i <= 8; i++ {
		if lim.Allow(ActionLogin, "clientX") {
			t.Fatalf("Allow() attempt %d = true, want false", i)
		}
	}
	if n := rec.count(core.EventRateLimitExceeded); n != 1 {
		t.Errorf("rate_limit_exceeded events = %d, want 1", n)
	}
	if ev := rec.events[0]; ev.Severity != core.SeverityMedium || ev.UserID != "clientX" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestAllowWindowRollover(t *testing.T) {
	lim := NewLimiter(time.Minute, nil, nil)

	now := time.Now()
	lim.nowFunc = func() time.Time { return now }

	for i := 0; i < 5; i++ {
		lim.Allow(ActionLogin, "clientX")
	}
	if lim.Allow(ActionLogin, "clientX") {
		t.Fatal("Allow() = true after budget exhausted")
	}

	// a full window elapses; a fresh entry replaces the old one
	now = now.Add(time.Minute)
	if !lim.Allow(ActionLogin, "clientX") {
		t.Error("Allow() = false after window elapsed, want true")
	}
	if got := lim.Attempts(ActionLogin, "clientX"); got != 1 {
		t.Errorf("Attempts() = %d, want 1", got)
	}
}

func TestAllowIndependentKeys(t *testing.T) {
	lim := NewLimiter(time.Minute, nil, nil)

	for i := 0; i < 3; i++ {
		lim.Allow(ActionSignup, "clientA")
	}
	if lim.Allow(ActionSignup, "clientA") {
		t.Error("clientA should be blocked for signup")
	}
	if !lim.Allow(ActionSignup, "clientB") {
		t.Error("clientB should not be affected by clientA's block")
	}
	if !lim.Allow(ActionLogin, "clientA") {
		t.Error("clientA's login budget should not be affected by its signup block")
	}
}

func TestMaxAttempts(t *testing.T) {
	tests := []struct {
		action Action
		want   int
	}{
		{ActionLogin, 5},
		{ActionSignup, 3},
		{ActionFeedback, 10},
		{ActionChat, 30},
		{ActionGeneral, 100},
		{Action("unknown"), 100},
	}
	for _, tt := range tests {
		if got := MaxAttempts(tt.action); got != tt.want {
			t.Errorf("MaxAttempts(%q) = %d, want %d", tt.action, got, tt.want)
		}
	}
}

func TestProgressiveDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{0, time.Second},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second}, // capped
		{100, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := ProgressiveDelay(tt.attempts); got != tt.want {
			t.Errorf("ProgressiveDelay(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestSweep(t *testing.T) {
	lim := NewLimiter(time.Minute, nil, nil)

	now := time.Now()
	lim.nowFunc = func() time.Time { return now }

	lim.Allow(ActionChat, "stale")
	now = now.Add(90 * time.Second)
	lim.Allow(ActionChat, "fresh")

	now = now.Add(45 * time.Second) // "stale" window is now 2m15s old
	lim.Sweep()

	lim.mu.Lock()
	defer lim.mu.Unlock()
	if _, ok := lim.entries["chat:stale"]; ok {
		t.Error("stale entry survived the sweep")
	}
	if _, ok := lim.entries["chat:fresh"]; !ok {
		t.Error("fresh entry was evicted")
	}
}

func TestFingerprint(t *testing.T) {
	fp1 := Fingerprint("Mozilla/5.0", "en-US", "1920x1080", "10.0.0.1")
	fp2 := Fingerprint("Mozilla/5.0", "en-US", "1920x1080", "10.0.0.1")
	if fp1 != fp2 {
		t.Error("Fingerprint() is not deterministic")
	}
	if fp3 := Fingerprint("Mozilla/5.0", "en-US", "1920x1080", "10.0.0.2"); fp3 == fp1 {
		t.Error("Fingerprint() ignored the remote IP")
	}
	if fp1 == "Mozilla/5.0|en-US|1920x1080|10.0.0.1" {
		t.Error("Fingerprint() leaked raw attributes")
	}
}

package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/mwalimuhq/ngao/core"
)

// Action is a rate-limited kind of request.
type Action string

const (
	ActionLogin    Action = "login"
	ActionSignup   Action = "signup"
	ActionFeedback Action = "feedback"
	ActionChat     Action = "chat"
	ActionGeneral  Action = "general"
)

// max attempts per action within one window
var maxAttempts = map[Action]int{
	ActionLogin:    5,
	ActionSignup:   3,
	ActionFeedback: 10,
	ActionChat:     30,
	ActionGeneral:  100,
}

const (
	DefaultWindow        = time.Minute
	DefaultSweepInterval = 5 * time.Minute

	maxProgressiveDelay = 30 * time.Second
)

// MaxAttempts returns the per-window attempt budget for an action.
// Unknown actions get the general budget.
func MaxAttempts(action Action) int {
	if max, ok := maxAttempts[action]; ok {
		return max
	}
	return maxAttempts[ActionGeneral]
}

type entry struct {
	count       int
	windowStart time.Time
	blocked     bool
}

// Limiter bounds the number of attempts of an action per client within a
// fixed time window. Windows roll over lazily on the first check past the
// window end; there is no timer driving the rollover.
//
// Each Limiter owns its cache; construct isolated instances in tests.
type Limiter struct {
	window time.Duration
	audit  core.AuditService
	logger core.Logger

	mu      sync.Mutex
	entries map[string]entry

	sweepOnce sync.Once
	done      chan struct{}

	nowFunc func() time.Time // mockable
}

func NewLimiter(window time.Duration, audit core.AuditService, logger core.Logger) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{
		window:  window,
		audit:   audit,
		logger:  logger,
		entries: make(map[string]entry),
		done:    make(chan struct{}),
		nowFunc: time.Now,
	}
}

// Allow reports whether clientID may perform action now and counts the attempt.
// The call that first exceeds the action's budget records a single
// "rate_limit_exceeded" security event; audit failures are contained here and
// never affect the decision.
func (l *Limiter) Allow(action Action, clientID string) bool {
	max := MaxAttempts(action)
	key := string(action) + ":" + clientID
	now := l.nowFunc()

	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= l.window {
		e = entry{windowStart: now} // new window, old entry replaced
	}
	e.count++
	allowed := e.count <= max
	firstExcess := !allowed && !e.blocked
	if !allowed {
		e.blocked = true
	}
	l.entries[key] = e
	l.mu.Unlock()

	if firstExcess {
		l.recordExceeded(action, clientID)
	}
	return allowed
}

// Attempts returns the attempt count of the current window.
func (l *Limiter) Attempts(action Action, clientID string) int {
	key := string(action) + ":" + clientID
	now := l.nowFunc()

	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok || now.Sub(e.windowStart) >= l.window {
		return 0
	}
	return e.count
}

// ProgressiveDelay suggests an exponential backoff for the given attempt
// count: 1s * 2^(n-1), capped at 30s. Advisory only; callers decide whether
// to actually wait.
func ProgressiveDelay(attempts int) time.Duration {
	if attempts <= 1 {
		return time.Second
	}
	d := time.Second
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= maxProgressiveDelay {
			return maxProgressiveDelay
		}
	}
	return d
}

// StartSweep launches the periodic cache sweep. Safe to call once per Limiter;
// Stop cancels it.
func (l *Limiter) StartSweep(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	l.sweepOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					l.Sweep()
				case <-l.done:
					return
				}
			}
		}()
	})
}

// Stop cancels the sweep goroutine.
func (l *Limiter) Stop() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

// Sweep drops entries whose window started more than 2x the window size ago,
// bounding the cache.
func (l *Limiter) Sweep() {
	now := l.nowFunc()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if now.Sub(e.windowStart) > 2*l.window {
			delete(l.entries, key)
		}
	}
}

func (l *Limiter) recordExceeded(action Action, clientID string) {
	defer func() {
		if rec := recover(); rec != nil && l.logger != nil {
			l.logger.Error(fmt.Sprintf("ratelimit: recording event: %v", rec))
		}
	}()
	if l.audit == nil {
		return
	}
	l.audit.RecordEvents(core.NewSecurityEvent(
		core.EventRateLimitExceeded,
		clientID,
		fmt.Sprintf("rate limit exceeded for action %q", action),
		core.SeverityMedium,
	))
}

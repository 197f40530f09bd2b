// Package auditsvc provides core.AuditService implementations. All of them
// are fire-and-forget: a failing sink logs its own trouble and never returns
// an error to the guarded operation.
package auditsvc

import (
	"fmt"
	"sync"

	"github.com/mwalimuhq/ngao/core"
)

type consoleService struct {
	logger        core.Logger
	disableOutput bool

	mu       sync.Mutex
	recorded []core.SecurityEvent
}

var _ core.AuditService = (*consoleService)(nil)

func NewConsoleService(logger core.Logger) *consoleService {
	return &consoleService{logger: logger}
}

// NewConsoleServiceMock records synchronously and silently; for tests.
func NewConsoleServiceMock() *consoleService {
	return &consoleService{disableOutput: true}
}

func (svc *consoleService) RecordEvents(events ...core.SecurityEvent) {
	for _, ev := range events {
		if !svc.disableOutput && svc.logger != nil {
			svc.logger.Warn(fmt.Sprintf("security event: %s [%s]", ev.Type, ev.Severity), ev)
		}
		svc.mu.Lock()
		svc.recorded = append(svc.recorded, ev)
		svc.mu.Unlock()
	}
}

// Recorded returns a copy of everything recorded so far.
func (svc *consoleService) Recorded() []core.SecurityEvent {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	out := make([]core.SecurityEvent, len(svc.recorded))
	copy(out, svc.recorded)
	return out
}

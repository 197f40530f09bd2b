package auditsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/mwalimuhq/ngao/core"
)

const insertTimeout = 5 * time.Second

type databaseService struct {
	repo   core.EventRepository
	logger core.Logger
	sync   bool // tests insert inline
}

var _ core.AuditService = (*databaseService)(nil)

// NewDatabaseService persists events through repo. Inserts run off the caller's
// goroutine; insert failures are logged and dropped.
func NewDatabaseService(repo core.EventRepository, logger core.Logger) *databaseService {
	return &databaseService{repo: repo, logger: logger}
}

func NewDatabaseServiceMock(repo core.EventRepository, logger core.Logger) *databaseService {
	return &databaseService{repo: repo, logger: logger, sync: true}
}

func (svc *databaseService) RecordEvents(events ...core.SecurityEvent) {
	for _, ev := range events {
		if svc.sync {
			svc.insert(ev)
		} else {
			ev := ev
			go svc.insert(ev)
		}
	}
}

func (svc *databaseService) insert(ev core.SecurityEvent) {
	defer func() {
		if rec := recover(); rec != nil && svc.logger != nil {
			svc.logger.Error(fmt.Sprintf("audit: inserting event: %v", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), insertTimeout)
	defer cancel()
	if err := svc.repo.CreateEvent(ctx, ev); err != nil && svc.logger != nil {
		svc.logger.Error(fmt.Sprintf("audit: inserting event: %v", err), ev)
	}
}

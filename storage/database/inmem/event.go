// Package inmemdb provides in-memory repositories for DEV and tests.
package inmemdb

import (
	"context"
	"sync"
	"time"

	"github.com/mwalimuhq/ngao/core"
)

type eventRepository struct {
	mu     sync.RWMutex
	events []core.SecurityEvent
}

var _ core.EventRepository = (*eventRepository)(nil)

func NewEventRepository() *eventRepository {
	return &eventRepository{}
}

func (repo *eventRepository) CreateEvent(_ context.Context, ev core.SecurityEvent) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.events = append(repo.events, ev)
	return nil
}

func (repo *eventRepository) FilterEvents(_ context.Context, filter core.EventFilter) ([]core.SecurityEvent, error) {
	repo.mu.RLock()
	defer repo.mu.RUnlock()

	matches := make([]core.SecurityEvent, 0, len(repo.events))
	// newest first
	for i := len(repo.events) - 1; i >= 0; i-- {
		ev := repo.events[i]
		if filter.Type != "" && ev.Type != filter.Type {
			continue
		}
		if filter.Severity != "" && ev.Severity != filter.Severity {
			continue
		}
		if filter.UserID != "" && ev.UserID != filter.UserID {
			continue
		}
		if !filter.Since.IsZero() && ev.Time.Before(filter.Since) {
			continue
		}
		matches = append(matches, ev)
		if filter.Limit > 0 && len(matches) == filter.Limit {
			break
		}
	}
	return matches, nil
}

func (repo *eventRepository) PurgeEventsBefore(_ context.Context, t time.Time) (int64, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	kept := repo.events[:0]
	var purged int64
	for _, ev := range repo.events {
		if ev.Time.Before(t) {
			purged++
			continue
		}
		kept = append(kept, ev)
	}
	repo.events = kept
	return purged, nil
}

// Package sessionstore holds session.Store implementations. The managed auth
// backend owns the production store; the in-memory one backs DEV and tests.
package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/mwalimuhq/ngao/core/session"
)

type inMemStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
}

var _ session.Store = (*inMemStore)(nil)

func NewInMemStore() *inMemStore {
	return &inMemStore{sessions: make(map[string]*session.Session)}
}

func (s *inMemStore) GetSession(_ context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *inMemStore) SaveSession(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *inMemStore) RefreshSession(_ context.Context, id string, ttl time.Duration) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	sess.ExpiresAt = time.Now().UTC().Add(ttl)
	cp := *sess
	return &cp, nil
}

func (s *inMemStore) ClearSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *inMemStore) ActiveSessions(_ context.Context) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		cp := *sess
		out = append(out, &cp)
	}
	return out, nil
}

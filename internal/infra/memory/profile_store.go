package memory

import (
	"context"
	"encoding/json"
	"sync"

	"course-portal/internal/domain"
)

// ProfileStore is an in-memory implementation of app.ProfileStore.
type ProfileStore struct {
	mu      sync.RWMutex
	records map[string]json.RawMessage
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		records: make(map[string]json.RawMessage),
	}
}

func (s *ProfileStore) Get(_ context.Context, email string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[email]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return append(json.RawMessage(nil), record...), nil
}

func (s *ProfileStore) Put(_ context.Context, email string, record json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[email] = append(json.RawMessage(nil), record...)
	return nil
}

package memory

import (
	"sync"

	"course-portal/internal/domain"
)

// SessionSlot is an in-memory implementation of app.SessionSlot.
type SessionSlot struct {
	mu   sync.RWMutex
	user *domain.User
}

func NewSessionSlot() *SessionSlot {
	return &SessionSlot{}
}

func (s *SessionSlot) Load() (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil, nil
	}
	u := s.user.Clone()
	return &u, nil
}

func (s *SessionSlot) Save(user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user.Clone()
	s.user = &u
	return nil
}

func (s *SessionSlot) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	return nil
}

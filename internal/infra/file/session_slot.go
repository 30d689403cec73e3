package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"course-portal/internal/domain"
)

// SessionSlot stores the current user record in a single file. A missing file means logged out.
type SessionSlot struct {
	path string
}

func NewSessionSlot(path string) *SessionSlot {
	return &SessionSlot{path: path}
}

func (s *SessionSlot) Load() (*domain.User, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &user, nil
}

func (s *SessionSlot) Save(user domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return writeFileAtomic(s.path, raw)
}

func (s *SessionSlot) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"course-portal/internal/domain"

	"github.com/redis/go-redis/v9"
)

// ProfileStore keeps each profile record as a JSON string under profile:{email}.
// Records never expire.
type ProfileStore struct {
	client *redis.Client
}

func NewProfileStore(client *redis.Client) *ProfileStore {
	return &ProfileStore{client: client}
}

func (s *ProfileStore) Get(ctx context.Context, email string) (json.RawMessage, error) {
	raw, err := s.client.Get(ctx, s.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return json.RawMessage(raw), nil
}

func (s *ProfileStore) Put(ctx context.Context, email string, record json.RawMessage) error {
	if err := s.client.Set(ctx, s.key(email), []byte(record), 0).Err(); err != nil {
		return fmt.Errorf("set profile: %w", err)
	}
	return nil
}

func (s *ProfileStore) key(email string) string {
	return "profile:" + email
}

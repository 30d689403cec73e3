package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"course-portal/internal/domain"

	"github.com/uptrace/bun"
)

// ProfileStore keeps profile records in the profiles table (email primary key, data jsonb).
type ProfileStore struct {
	db  *bun.DB
	now func() time.Time
}

func NewProfileStore(db *bun.DB) *ProfileStore {
	return &ProfileStore{db: db, now: time.Now}
}

func (s *ProfileStore) Get(ctx context.Context, email string) (json.RawMessage, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE email = ?`, email).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return json.RawMessage(raw), nil
}

func (s *ProfileStore) Put(ctx context.Context, email string, record json.RawMessage) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (email, data, updated_at) VALUES (?, ?::jsonb, ?) `+
			`ON CONFLICT (email) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		email, string(record), s.now().UTC())
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// SeedCourses upserts every course into the courses table read by CourseLoader.
func SeedCourses(ctx context.Context, db *bun.DB, courses []domain.Course) error {
	for _, course := range courses {
		data, err := json.Marshal(course)
		if err != nil {
			return fmt.Errorf("marshal course %s: %w", course.ID, err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO courses (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
			course.ID, string(data)); err != nil {
			return fmt.Errorf("seed course %s: %w", course.ID, err)
		}
	}
	return nil
}

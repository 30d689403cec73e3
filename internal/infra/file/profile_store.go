// Package file keeps profile records and the local session in JSON files.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"course-portal/internal/domain"

	"go.uber.org/zap"
)

// ProfileStore keeps every record in one JSON document {"users": {email: record}}.
// Each call reads or rewrites the whole file; concurrent writers race and the last one wins.
type ProfileStore struct {
	path   string
	logger *zap.Logger
}

type document struct {
	Users map[string]json.RawMessage `json:"users"`
}

func NewProfileStore(path string, logger *zap.Logger) *ProfileStore {
	return &ProfileStore{path: path, logger: logger}
}

func (s *ProfileStore) Get(_ context.Context, email string) (json.RawMessage, error) {
	doc := s.read()
	record, ok := doc.Users[email]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return record, nil
}

func (s *ProfileStore) Put(_ context.Context, email string, record json.RawMessage) error {
	doc := s.read()
	doc.Users[email] = record
	return s.write(doc)
}

// read falls back to an empty document when the file is missing or unreadable.
func (s *ProfileStore) read() document {
	empty := document{Users: make(map[string]json.RawMessage)}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Error("read profile db", zap.String("path", s.path), zap.Error(err))
		}
		return empty
	}
	if len(raw) == 0 {
		return empty
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Error("parse profile db", zap.String("path", s.path), zap.Error(err))
		return empty
	}
	if doc.Users == nil {
		doc.Users = make(map[string]json.RawMessage)
	}
	return doc
}

func (s *ProfileStore) write(doc document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profile db: %w", err)
	}
	if err := writeFileAtomic(s.path, raw); err != nil {
		s.logger.Error("write profile db", zap.String("path", s.path), zap.Error(err))
		return err
	}
	return nil
}

// writeFileAtomic replaces path with data through a temp file in the same directory.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

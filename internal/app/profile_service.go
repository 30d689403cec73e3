package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"course-portal/internal/domain"

	"go.uber.org/zap"
)

// ProfileStore abstracts where profile records live (file, memory, Redis, Postgres, MinIO).
// Records are opaque JSON objects keyed by email; Get returns domain.ErrProfileNotFound when absent.
type ProfileStore interface {
	Get(ctx context.Context, email string) (json.RawMessage, error)
	Put(ctx context.Context, email string, record json.RawMessage) error
}

// ProfileMetrics observes profile store traffic.
type ProfileMetrics interface {
	RecordProfileFetch(found bool)
	RecordProfileUpsert()
	RecordInvalidUpsert()
	SetWatchers(n int)
}

// ProfileService contains the profile store use cases.
type ProfileService struct {
	store   ProfileStore
	metrics ProfileMetrics
	logger  *zap.Logger

	// writes serializes Put+broadcast per email so watchers see records in store order.
	writes emailLocks

	mu       sync.Mutex
	watchers map[string]map[chan json.RawMessage]struct{}
	count    int
}

func NewProfileService(store ProfileStore, metrics ProfileMetrics, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		store:    store,
		metrics:  metrics,
		logger:   logger,
		watchers: make(map[string]map[chan json.RawMessage]struct{}),
	}
}

// Get returns the stored record for email.
func (s *ProfileService) Get(ctx context.Context, email string) (json.RawMessage, error) {
	record, err := s.store.Get(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) && s.metrics != nil {
			s.metrics.RecordProfileFetch(false)
		}
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordProfileFetch(true)
	}
	return record, nil
}

// Upsert validates body as a profile record and replaces the stored record for its email.
func (s *ProfileService) Upsert(ctx context.Context, body []byte) (string, error) {
	email, record, err := parseRecord(body)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordInvalidUpsert()
		}
		return "", err
	}
	unlock := s.writes.lock(email)
	defer unlock()
	if err := s.store.Put(ctx, email, record); err != nil {
		return "", fmt.Errorf("store profile: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordProfileUpsert()
	}
	s.broadcast(email, record)
	return email, nil
}

// Watch returns a channel receiving the record for email after every upsert, starting
// with the current record when one exists. The caller must invoke cancel to avoid leaks.
func (s *ProfileService) Watch(ctx context.Context, email string) (<-chan json.RawMessage, func()) {
	ch := make(chan json.RawMessage, 8)

	// No upsert for email can land between the initial read and registration.
	unlock := s.writes.lock(email)
	current, err := s.store.Get(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		s.logger.Warn("watch: initial profile read failed", zap.String("email", email), zap.Error(err))
	}

	s.mu.Lock()
	set, ok := s.watchers[email]
	if !ok {
		set = make(map[chan json.RawMessage]struct{})
		s.watchers[email] = set
	}
	set[ch] = struct{}{}
	if err == nil {
		sendLatest(ch, current)
	}
	s.count++
	s.reportWatchersLocked()
	s.mu.Unlock()
	unlock()

	cancel := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		set, ok := s.watchers[email]
		if !ok {
			return
		}
		if _, ok := set[ch]; !ok {
			return
		}
		delete(set, ch)
		if len(set) == 0 {
			delete(s.watchers, email)
		}
		close(ch)
		s.count--
		s.reportWatchersLocked()
	}
	return ch, cancel
}

func (s *ProfileService) broadcast(email string, record json.RawMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.watchers[email] {
		sendLatest(ch, record)
	}
}

func (s *ProfileService) reportWatchersLocked() {
	if s.metrics != nil {
		s.metrics.SetWatchers(s.count)
	}
}

// emailLocks hands out one mutex per email, dropped once nobody holds or waits on it.
type emailLocks struct {
	mu    sync.Mutex
	locks map[string]*emailLock
}

type emailLock struct {
	sync.Mutex
	refs int
}

func (l *emailLocks) lock(email string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*emailLock)
	}
	el, ok := l.locks[email]
	if !ok {
		el = &emailLock{}
		l.locks[email] = el
	}
	el.refs++
	l.mu.Unlock()

	el.Lock()
	return func() {
		el.Unlock()
		l.mu.Lock()
		el.refs--
		if el.refs == 0 {
			delete(l.locks, email)
		}
		l.mu.Unlock()
	}
}

// sendLatest never blocks: a full channel loses its oldest record.
func sendLatest(ch chan json.RawMessage, record json.RawMessage) {
	select {
	case ch <- record:
	default:
		select {
		case <-ch:
		default:
		}
		ch <- record
	}
}

// parseRecord checks that body is a JSON object with a non-empty string email.
func parseRecord(body []byte) (string, json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return "", nil, domain.ErrInvalidRecord
	}
	rawEmail, ok := fields["email"]
	if !ok {
		return "", nil, domain.ErrMissingEmail
	}
	var email string
	if err := json.Unmarshal(rawEmail, &email); err != nil || email == "" {
		return "", nil, domain.ErrMissingEmail
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return "", nil, domain.ErrInvalidRecord
	}
	return email, json.RawMessage(buf.Bytes()), nil
}

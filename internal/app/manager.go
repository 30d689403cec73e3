package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"course-portal/internal/catalog"
	"course-portal/internal/domain"

	"go.uber.org/zap"
)

// SessionSlot is the local durable storage holding the current user record.
// Load returns nil when no session is stored.
type SessionSlot interface {
	Load() (*domain.User, error)
	Save(user domain.User) error
	Clear() error
}

// ProfileFetcher reads a remote profile as raw top-level fields.
// It returns domain.ErrProfileNotFound when the store has no record.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, email string) (map[string]json.RawMessage, error)
}

// Mirror receives a snapshot of the record after every persisted change.
// Enqueue must not block.
type Mirror interface {
	Enqueue(user domain.User)
}

// ProfileUpdate carries the editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	FullName *string
}

// HistoryEntry is one stored quiz result with its catalog titles.
type HistoryEntry struct {
	CourseID    string            `json:"courseId"`
	CourseTitle string            `json:"courseTitle"`
	LessonID    int               `json:"lessonId"`
	LessonTitle string            `json:"lessonTitle"`
	Result      domain.TestResult `json:"result"`
}

// Manager owns the current session and mediates every progress transition.
type Manager struct {
	catalog *catalog.Catalog
	slot    SessionSlot
	fetcher ProfileFetcher
	mirror  Mirror
	logger  *zap.Logger
	now     func() time.Time

	mu   sync.RWMutex
	user *domain.User
}

// Option configures a Manager.
type Option func(*Manager)

// WithFetcher enables loading remote profiles on login.
func WithFetcher(f ProfileFetcher) Option {
	return func(m *Manager) { m.fetcher = f }
}

// WithMirror enables mirroring every change to the profile store.
func WithMirror(mirror Mirror) Option {
	return func(m *Manager) { m.mirror = mirror }
}

// WithClock overrides time.Now, for deterministic timestamps in tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager builds a manager and restores any session stored in the slot.
func NewManager(cat *catalog.Catalog, slot SessionSlot, logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		catalog: cat,
		slot:    slot,
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.restore()
	return m
}

func (m *Manager) restore() {
	user, err := m.slot.Load()
	if err != nil {
		m.logger.Warn("stored session unreadable, starting logged out", zap.Error(err))
		return
	}
	if user == nil {
		return
	}
	user.Normalize(m.catalog.Courses())
	m.user = user
}

// Login starts a session. The password is accepted as-is. A remote profile, when one
// exists, overrides the local defaults key by key.
func (m *Manager) Login(ctx context.Context, email, password, fullName string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, domain.ErrMissingCredentials
	}
	if fullName == "" {
		fullName = localPart(email)
	}

	user := domain.NewUser(email, fullName, m.catalog.Courses(), m.now())
	if m.fetcher != nil {
		remote, err := m.fetcher.FetchProfile(ctx, email)
		switch {
		case err == nil:
			merged, mergeErr := mergeRecord(user, remote)
			if mergeErr != nil {
				m.logger.Warn("remote profile unusable, using local defaults", zap.String("email", email), zap.Error(mergeErr))
			} else {
				user = merged
			}
		case errors.Is(err, domain.ErrProfileNotFound):
			m.logger.Debug("no remote profile", zap.String("email", email))
		default:
			m.logger.Warn("profile fetch failed, using local defaults", zap.String("email", email), zap.Error(err))
		}
	}
	user.Normalize(m.catalog.Courses())

	return m.start(user), nil
}

// Register starts a session with a fresh record, ignoring any remote profile.
func (m *Manager) Register(_ context.Context, email, password, fullName string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, domain.ErrMissingCredentials
	}
	if fullName == "" {
		fullName = localPart(email)
	}
	user := domain.NewUser(email, fullName, m.catalog.Courses(), m.now())
	return m.start(user), nil
}

func (m *Manager) start(user domain.User) domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = &user
	m.persistLocked()
	return user.Clone()
}

// Logout ends the session and clears the local slot. The remote record is kept.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	if err := m.slot.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Current returns a copy of the session record.
func (m *Manager) Current() (domain.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return domain.User{}, false
	}
	return m.user.Clone(), true
}

// UpdateProfile merges the provided fields into the session record.
func (m *Manager) UpdateProfile(update ProfileUpdate) error {
	return m.update(func(u *domain.User) error {
		if update.FullName != nil {
			u.FullName = *update.FullName
		}
		return nil
	})
}

// EnrollCourse adds the course to the enrolled set and marks it started.
func (m *Manager) EnrollCourse(courseID string) error {
	return m.update(func(u *domain.User) error {
		p, ok := u.CoursesProgress[courseID]
		if !ok {
			course, known := m.catalog.Course(courseID)
			if !known {
				return domain.ErrCourseNotFound
			}
			p = domain.NewCourseProgress(len(course.Lessons))
		}
		if !u.IsEnrolled(courseID) {
			u.EnrolledCourses = append(u.EnrolledCourses, courseID)
		}
		p.Started = true
		u.CoursesProgress[courseID] = p
		return nil
	})
}

// MarkLessonComplete adds the lesson to the course's completed set.
func (m *Manager) MarkLessonComplete(courseID string, lessonID int) error {
	return m.update(func(u *domain.User) error {
		p, ok := u.CoursesProgress[courseID]
		if !ok {
			return domain.ErrCourseNotFound
		}
		if course, known := m.catalog.Course(courseID); known {
			if _, ok := course.Lesson(lessonID); !ok {
				return domain.ErrLessonNotFound
			}
		}
		p.CompletedLessons = p.CompletedLessons.Add(lessonID)
		u.CoursesProgress[courseID] = p
		return nil
	})
}

// SaveTestResult stores result as the only result for the lesson, replacing any earlier one.
func (m *Manager) SaveTestResult(courseID string, lessonID int, result domain.TestResult) error {
	return m.update(func(u *domain.User) error {
		p := m.progressFor(u, courseID)
		p.Tests[lessonID] = result
		u.CoursesProgress[courseID] = p
		return nil
	})
}

// RecordQuizResult saves the result and completes the lesson when the score passes.
func (m *Manager) RecordQuizResult(courseID string, lessonID int, result domain.TestResult) error {
	return m.update(func(u *domain.User) error {
		u.CoursesProgress[courseID] = applyQuizResult(m.progressFor(u, courseID), lessonID, result)
		return nil
	})
}

// SubmitQuiz scores answers against the lesson's quiz and records the result.
// The lesson must already be completed.
func (m *Manager) SubmitQuiz(courseID string, lessonID int, answers map[int]int) (QuizOutcome, error) {
	lesson, err := m.catalog.Lesson(courseID, lessonID)
	if err != nil {
		return QuizOutcome{}, err
	}
	if !lesson.HasQuiz() {
		return QuizOutcome{}, domain.ErrEmptyQuiz
	}

	var outcome QuizOutcome
	err = m.update(func(u *domain.User) error {
		p, ok := u.CoursesProgress[courseID]
		if !ok || !p.CompletedLessons.Has(lessonID) {
			return domain.ErrLessonLocked
		}
		result, err := ScoreQuiz(lesson.Test, answers, m.now())
		if err != nil {
			return err
		}
		u.CoursesProgress[courseID] = applyQuizResult(p, lessonID, result)
		outcome = QuizOutcome{Result: result, Passed: result.Score >= PassingScore}
		return nil
	})
	return outcome, err
}

// GetCourseProgress returns the course progress with its derived percentage.
func (m *Manager) GetCourseProgress(courseID string) (domain.ProgressView, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return domain.ProgressView{}, false
	}
	p, ok := m.user.CoursesProgress[courseID]
	if !ok {
		return domain.ProgressView{}, false
	}
	return p.View(), true
}

// TotalProgress is the share of completed lessons across all courses.
func (m *Manager) TotalProgress() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return 0
	}
	completed, total := 0, 0
	for _, p := range m.user.CoursesProgress {
		completed += len(p.CompletedLessons)
		total += p.TotalLessons
	}
	if total <= 0 {
		return 0
	}
	if completed > total {
		return 100
	}
	return domain.Percent(completed, total)
}

// EnrolledCount returns the number of enrolled courses.
func (m *Manager) EnrolledCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return 0
	}
	return len(m.user.EnrolledCourses)
}

// TestHistory lists every stored quiz result, catalog courses first, lessons ascending.
func (m *Manager) TestHistory() []HistoryEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}

	order := make([]string, 0, len(m.user.CoursesProgress))
	for _, c := range m.catalog.Courses() {
		if _, ok := m.user.CoursesProgress[c.ID]; ok {
			order = append(order, c.ID)
		}
	}
	var extra []string
	for id := range m.user.CoursesProgress {
		if _, known := m.catalog.Course(id); !known {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	var entries []HistoryEntry
	for _, courseID := range order {
		p := m.user.CoursesProgress[courseID]
		lessonIDs := make([]int, 0, len(p.Tests))
		for id := range p.Tests {
			lessonIDs = append(lessonIDs, id)
		}
		sort.Ints(lessonIDs)

		course, _ := m.catalog.Course(courseID)
		for _, lessonID := range lessonIDs {
			entry := HistoryEntry{
				CourseID:    courseID,
				CourseTitle: courseID,
				LessonID:    lessonID,
				LessonTitle: fmt.Sprintf("Lesson %d", lessonID),
				Result:      p.Tests[lessonID],
			}
			if course.Title != "" {
				entry.CourseTitle = course.Title
			}
			if lesson, ok := course.Lesson(lessonID); ok {
				entry.LessonTitle = lesson.Title
			}
			entries = append(entries, entry)
		}
	}
	return entries
}

// update applies fn to a copy of the record and commits it only when fn succeeds.
func (m *Manager) update(fn func(u *domain.User) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return domain.ErrNoSession
	}
	next := m.user.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	m.user = &next
	m.persistLocked()
	return nil
}

func (m *Manager) persistLocked() {
	snapshot := m.user.Clone()
	if err := m.slot.Save(snapshot); err != nil {
		m.logger.Warn("failed to save session locally", zap.String("email", snapshot.Email), zap.Error(err))
	}
	if m.mirror != nil {
		m.mirror.Enqueue(snapshot)
	}
}

// progressFor returns the course's progress, materializing an empty entry sized from the catalog.
func (m *Manager) progressFor(u *domain.User, courseID string) domain.CourseProgress {
	if p, ok := u.CoursesProgress[courseID]; ok {
		return p
	}
	total := 0
	if course, known := m.catalog.Course(courseID); known {
		total = len(course.Lessons)
	}
	return domain.NewCourseProgress(total)
}

// mergeRecord overlays every top-level key of remote onto base. The email stays the login key.
func mergeRecord(base domain.User, remote map[string]json.RawMessage) (domain.User, error) {
	raw, err := json.Marshal(base)
	if err != nil {
		return base, fmt.Errorf("encode defaults: %w", err)
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return base, fmt.Errorf("decode defaults: %w", err)
	}
	for k, v := range remote {
		fields[k] = v
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return base, fmt.Errorf("encode merged profile: %w", err)
	}
	var out domain.User
	if err := json.Unmarshal(merged, &out); err != nil {
		return base, fmt.Errorf("decode merged profile: %w", err)
	}
	out.Email = base.Email
	return out, nil
}

func localPart(email string) string {
	if i := strings.Index(email, "@"); i > 0 {
		return email[:i]
	}
	return email
}

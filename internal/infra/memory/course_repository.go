package memory

import (
	"context"
	"sync"
	"time"

	"course-portal/internal/domain"
	"course-portal/internal/infra/cache"
)

// CourseLoader fetches course content from a backing store (static catalog, Postgres).
type CourseLoader interface {
	LoadCourse(ctx context.Context, courseID string) (domain.Course, error)
}

// CourseRepository keeps loaded courses in process until their TTL runs out.
type CourseRepository struct {
	clock func() time.Time
	rt    *cache.ReadThrough[domain.Course]

	mu      sync.RWMutex
	entries map[string]courseEntry
}

type courseEntry struct {
	course    domain.Course
	expiresAt time.Time
}

func NewCourseRepository(loader CourseLoader, ttl time.Duration) *CourseRepository {
	r := &CourseRepository{
		clock:   time.Now,
		entries: make(map[string]courseEntry),
	}
	r.rt = cache.NewReadThrough[domain.Course](r, loader.LoadCourse, cache.NewTTL(ttl))
	return r
}

func (r *CourseRepository) GetCourse(ctx context.Context, courseID string) (domain.Course, error) {
	return r.rt.Get(ctx, courseID)
}

// Lookup returns a course whose entry has not expired.
func (r *CourseRepository) Lookup(_ context.Context, courseID string) (domain.Course, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[courseID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Course{}, false
	}
	return entry.course, true
}

// Fill stores course until ttl from now.
func (r *CourseRepository) Fill(_ context.Context, courseID string, course domain.Course, ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[courseID] = courseEntry{course: course, expiresAt: r.clock().Add(ttl)}
}

package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"course-portal/internal/catalog"
	"course-portal/internal/domain"
)

func TestCourseRepositoryCaches(t *testing.T) {
	loader := &countingLoader{CourseLoader: catalog.Default()}
	repo := NewCourseRepository(loader, time.Minute)

	course, err := repo.GetCourse(context.Background(), "welder")
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if course.Title != "Welder" {
		t.Fatalf("unexpected course %+v", course)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	if _, err := repo.GetCourse(context.Background(), "welder"); err != nil {
		t.Fatalf("get course 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
}

func TestCourseRepositoryReloadsAfterExpiry(t *testing.T) {
	loader := &countingLoader{CourseLoader: catalog.Default()}
	repo := NewCourseRepository(loader, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetCourse(context.Background(), "seller"); err != nil {
		t.Fatalf("get course: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetCourse(context.Background(), "seller"); err != nil {
		t.Fatalf("get course after expiry: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.count())
	}
}

func TestCourseRepositoryDoesNotCacheMisses(t *testing.T) {
	loader := &countingLoader{CourseLoader: catalog.Default()}
	repo := NewCourseRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetCourse(context.Background(), "pilot"); err != domain.ErrCourseNotFound {
			t.Fatalf("expected course not found, got %v", err)
		}
	}
	if loader.count() != 2 {
		t.Fatalf("expected every miss to reach the loader, got %d", loader.count())
	}
}

type countingLoader struct {
	CourseLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadCourse(ctx context.Context, courseID string) (domain.Course, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.CourseLoader.LoadCourse(ctx, courseID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

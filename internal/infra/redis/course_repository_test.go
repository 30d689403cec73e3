package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"course-portal/internal/catalog"
	"course-portal/internal/domain"
	"course-portal/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func TestCourseRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{CourseLoader: catalog.Default()}
	repo := NewCourseRepository(newClient(mr), loader, time.Minute, zap.NewNop())

	course, err := repo.GetCourse(context.Background(), "manager")
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if len(course.Lessons) != 2 {
		t.Fatalf("expected 2 lessons, got %d", len(course.Lessons))
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("course:manager") {
		t.Fatalf("expected redis key to be set")
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.GetCourse(context.Background(), "manager")
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if cached.Lessons[0].Test[0].Correct != course.Lessons[0].Test[0].Correct {
		t.Fatalf("cached course lost quiz content: %+v", cached.Lessons[0])
	}
}

func TestCourseRepositoryExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{CourseLoader: catalog.Default()}
	repo := NewCourseRepository(newClient(mr), loader, time.Minute, zap.NewNop())

	if _, err := repo.GetCourse(context.Background(), "welder"); err != nil {
		t.Fatalf("get course: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := repo.GetCourse(context.Background(), "welder"); err != nil {
		t.Fatalf("get course after expiry: %v", err)
	}
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls=%d", loader.count())
	}
}

func TestCourseRepositoryUnknownCourse(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewCourseRepository(newClient(mr), catalog.Default(), time.Minute, zap.NewNop())
	if _, err := repo.GetCourse(context.Background(), "pilot"); err != domain.ErrCourseNotFound {
		t.Fatalf("expected course not found, got %v", err)
	}
}

type countingLoader struct {
	memory.CourseLoader
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

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

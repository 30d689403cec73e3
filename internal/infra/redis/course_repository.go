package redis

import (
	"context"
	"encoding/json"
	"time"

	"course-portal/internal/domain"
	"course-portal/internal/infra/cache"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CourseLoader fetches course content from a backing store (static catalog, Postgres).
type CourseLoader interface {
	LoadCourse(ctx context.Context, courseID string) (domain.Course, error)
}

// CourseRepository caches whole courses as JSON in Redis and falls back to a loader on miss.
// Courses are stored as: SET course:{courseID} {json} EX ttl
type CourseRepository struct {
	client *redis.Client
	logger *zap.Logger
	rt     *cache.ReadThrough[domain.Course]
}

func NewCourseRepository(client *redis.Client, loader CourseLoader, ttl time.Duration, logger *zap.Logger) *CourseRepository {
	r := &CourseRepository{client: client, logger: logger}
	r.rt = cache.NewReadThrough[domain.Course](r, loader.LoadCourse, cache.NewTTL(ttl))
	return r
}

func (r *CourseRepository) GetCourse(ctx context.Context, courseID string) (domain.Course, error) {
	return r.rt.Get(ctx, courseID)
}

// Lookup treats unreachable Redis and undecodable entries as misses.
func (r *CourseRepository) Lookup(ctx context.Context, courseID string) (domain.Course, bool) {
	raw, err := r.client.Get(ctx, r.key(courseID)).Bytes()
	if err != nil {
		return domain.Course{}, false
	}
	var course domain.Course
	if err := json.Unmarshal(raw, &course); err != nil {
		return domain.Course{}, false
	}
	return course, true
}

// Fill writes the course; failures are logged and the read still succeeds.
func (r *CourseRepository) Fill(ctx context.Context, courseID string, course domain.Course, ttl time.Duration) {
	raw, err := json.Marshal(course)
	if err == nil {
		err = r.client.Set(ctx, r.key(courseID), raw, ttl).Err()
	}
	if err != nil {
		r.logger.Warn("course cache fill failed", zap.String("course_id", courseID), zap.Error(err))
	}
}

func (r *CourseRepository) key(courseID string) string {
	return "course:" + courseID
}

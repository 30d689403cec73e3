// Package catalog holds the fixed set of courses offered by the portal.
package catalog

import (
	"context"

	"course-portal/internal/domain"
)

// Catalog is a read-only, ordered list of courses.
type Catalog struct {
	courses []domain.Course
	index   map[string]int
}

// New builds a catalog preserving the given order.
func New(courses []domain.Course) *Catalog {
	c := &Catalog{
		courses: courses,
		index:   make(map[string]int, len(courses)),
	}
	for i, course := range courses {
		c.index[course.ID] = i
	}
	return c
}

// Courses returns the courses in catalog order.
func (c *Catalog) Courses() []domain.Course {
	return c.courses
}

// Course looks up a course by id.
func (c *Catalog) Course(id string) (domain.Course, bool) {
	i, ok := c.index[id]
	if !ok {
		return domain.Course{}, false
	}
	return c.courses[i], true
}

// Lesson looks up a lesson of a course.
func (c *Catalog) Lesson(courseID string, lessonID int) (domain.Lesson, error) {
	course, ok := c.Course(courseID)
	if !ok {
		return domain.Lesson{}, domain.ErrCourseNotFound
	}
	lesson, ok := course.Lesson(lessonID)
	if !ok {
		return domain.Lesson{}, domain.ErrLessonNotFound
	}
	return lesson, nil
}

// LoadCourse implements the course loader contract used by course caches.
func (c *Catalog) LoadCourse(_ context.Context, id string) (domain.Course, error) {
	if course, ok := c.Course(id); ok {
		return course, nil
	}
	return domain.Course{}, domain.ErrCourseNotFound
}

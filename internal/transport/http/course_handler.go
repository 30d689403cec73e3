package http

import (
	"context"
	"errors"
	"net/http"

	"course-portal/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CourseGetter resolves a course through the cache.
type CourseGetter interface {
	GetCourse(ctx context.Context, courseID string) (domain.Course, error)
}

type CourseHandler struct {
	courses CourseGetter
	logger  *zap.Logger
}

func NewCourseHandler(courses CourseGetter, logger *zap.Logger) *CourseHandler {
	return &CourseHandler{courses: courses, logger: logger}
}

func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	course, err := h.courses.GetCourse(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			writeError(w, http.StatusNotFound, "Not found")
			return
		}
		h.logger.Error("load course", zap.String("course_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load course")
		return
	}
	writeJSON(w, http.StatusOK, course)
}

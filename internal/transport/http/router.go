package http

import (
	"net/http"

	"course-portal/internal/app"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Profiles          *app.ProfileService
	Courses           CourseGetter
	Logger            *zap.Logger
	Metrics           HTTPMetrics
	MetricsHandler    http.Handler
	RateLimiter       *RateLimiter
	CORSAllowedOrigin string
}

// NewRouter wires the profile store API.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logging(deps.Logger, deps.Metrics))
	r.Use(Recovery(deps.Logger))
	r.Use(CORS(deps.CORSAllowedOrigin))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	profiles := NewProfileHandler(deps.Profiles, deps.Logger)
	watch := NewWatchHandler(deps.Profiles, deps.Logger)

	r.Group(func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware)
		}

		r.Route("/api/users", func(r chi.Router) {
			r.Post("/", profiles.UpsertProfile)
			r.Get("/{email}", profiles.GetProfile)
			r.Get("/{email}/watch", watch.ServeWS)
		})

		if deps.Courses != nil {
			courses := NewCourseHandler(deps.Courses, deps.Logger)
			r.Get("/api/courses/{id}", courses.GetCourse)
		}
	})

	return r
}

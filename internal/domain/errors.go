package domain

import "errors"

var (
	// ErrNoSession is returned when an operation needs a logged-in user.
	ErrNoSession = errors.New("no active session")
	// ErrMissingCredentials is returned when login or registration lacks an email or password.
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrCourseNotFound indicates the course is unknown to the catalog or the user's progress.
	ErrCourseNotFound = errors.New("course not found")
	// ErrLessonNotFound indicates a lesson id outside the course.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrEmptyQuiz is returned when scoring a lesson without questions.
	ErrEmptyQuiz = errors.New("lesson has no quiz")
	// ErrLessonLocked is returned when a quiz is submitted before its lesson is completed.
	ErrLessonLocked = errors.New("lesson must be completed before taking its quiz")
	// ErrProfileNotFound indicates the profile store has no record for the email.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrMissingEmail is returned when an upserted record carries no email.
	ErrMissingEmail = errors.New("missing email")
	// ErrInvalidRecord is returned when an upserted record is not a JSON object.
	ErrInvalidRecord = errors.New("invalid profile record")
)

package domain

import (
	"sort"
	"time"
)

// Question is a single-choice quiz question; Correct indexes into Options.
type Question struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Correct  int      `json:"correct"`
}

// Lesson is one step of a course. Lesson ids define ordering.
type Lesson struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Video     string     `json:"video"`
	Materials string     `json:"materials,omitempty"`
	Test      []Question `json:"test,omitempty"`
}

// HasQuiz reports whether the lesson carries at least one question.
func (l Lesson) HasQuiz() bool {
	return len(l.Test) > 0
}

// Course is an immutable catalog entry.
type Course struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

// Lesson returns the lesson with the given id.
func (c Course) Lesson(id int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.ID == id {
			return l, true
		}
	}
	return Lesson{}, false
}

// TestResult is the stored outcome of one quiz submission.
type TestResult struct {
	Score        int         `json:"score"`
	CorrectCount int         `json:"correctCount"`
	Total        int         `json:"total"`
	Answers      map[int]int `json:"answers"`
	Date         time.Time   `json:"date"`
}

// LessonSet is a sorted set of lesson ids. It marshals as a JSON array.
type LessonSet []int

// Has reports membership.
func (s LessonSet) Has(id int) bool {
	i := sort.SearchInts(s, id)
	return i < len(s) && s[i] == id
}

// Add returns the set with id inserted. Adding an existing id returns an equal set.
func (s LessonSet) Add(id int) LessonSet {
	i := sort.SearchInts(s, id)
	if i < len(s) && s[i] == id {
		return s
	}
	out := make(LessonSet, 0, len(s)+1)
	out = append(out, s[:i]...)
	out = append(out, id)
	return append(out, s[i:]...)
}

// normalized sorts and de-duplicates ids decoded from an untrusted record.
func (s LessonSet) normalized() LessonSet {
	out := make(LessonSet, 0, len(s))
	for _, id := range s {
		out = out.Add(id)
	}
	return out
}

// CourseProgress tracks a user's state within one course.
// TotalLessons is fixed when the progress entry is created.
type CourseProgress struct {
	CompletedLessons LessonSet          `json:"completedLessons"`
	TotalLessons     int                `json:"totalLessons"`
	Started          bool               `json:"started"`
	Tests            map[int]TestResult `json:"tests"`
}

// NewCourseProgress builds an empty progress entry for a course with total lessons.
func NewCourseProgress(total int) CourseProgress {
	return CourseProgress{
		CompletedLessons: LessonSet{},
		TotalLessons:     total,
		Tests:            make(map[int]TestResult),
	}
}

// Percentage is round(100*completed/total) clamped to [0,100]. A non-positive total yields 0.
func (p CourseProgress) Percentage() int {
	if p.TotalLessons <= 0 {
		return 0
	}
	pct := Percent(len(p.CompletedLessons), p.TotalLessons)
	if pct > 100 {
		return 100
	}
	return pct
}

// Percent returns round(100*part/whole) using half-up rounding. whole must be positive.
func Percent(part, whole int) int {
	return (200*part + whole) / (2 * whole)
}

// ProgressView is CourseProgress with its derived percentage.
type ProgressView struct {
	CourseProgress
	Percentage  int  `json:"percentage"`
	IsCompleted bool `json:"isCompleted"`
}

// View derives the percentage and completion flag.
func (p CourseProgress) View() ProgressView {
	pct := p.Percentage()
	return ProgressView{
		CourseProgress: p.clone(),
		Percentage:     pct,
		IsCompleted:    p.TotalLessons > 0 && pct == 100,
	}
}

func (p CourseProgress) clone() CourseProgress {
	out := CourseProgress{
		CompletedLessons: append(LessonSet{}, p.CompletedLessons...),
		TotalLessons:     p.TotalLessons,
		Started:          p.Started,
		Tests:            make(map[int]TestResult, len(p.Tests)),
	}
	for id, r := range p.Tests {
		out.Tests[id] = r.clone()
	}
	return out
}

func (r TestResult) clone() TestResult {
	answers := make(map[int]int, len(r.Answers))
	for q, a := range r.Answers {
		answers[q] = a
	}
	r.Answers = answers
	return r
}

// User is the profile record shared between the local session and the profile store.
type User struct {
	Email           string                    `json:"email"`
	FullName        string                    `json:"fullName"`
	CreatedAt       time.Time                 `json:"createdAt"`
	EnrolledCourses []string                  `json:"enrolledCourses"`
	CoursesProgress map[string]CourseProgress `json:"coursesProgress"`
}

// NewUser seeds a record with an empty progress entry for every catalog course.
func NewUser(email, fullName string, courses []Course, now time.Time) User {
	u := User{
		Email:           email,
		FullName:        fullName,
		CreatedAt:       now,
		EnrolledCourses: []string{},
		CoursesProgress: make(map[string]CourseProgress, len(courses)),
	}
	for _, c := range courses {
		u.CoursesProgress[c.ID] = NewCourseProgress(len(c.Lessons))
	}
	return u
}

// IsEnrolled reports whether courseID is in EnrolledCourses.
func (u User) IsEnrolled(courseID string) bool {
	for _, id := range u.EnrolledCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

// Normalize repairs a decoded record so every nested collection is present,
// lesson sets are sorted and unique, and every catalog course has a progress entry.
func (u *User) Normalize(courses []Course) {
	seen := make(map[string]struct{}, len(u.EnrolledCourses))
	enrolled := make([]string, 0, len(u.EnrolledCourses))
	for _, id := range u.EnrolledCourses {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		enrolled = append(enrolled, id)
	}
	u.EnrolledCourses = enrolled

	if u.CoursesProgress == nil {
		u.CoursesProgress = make(map[string]CourseProgress, len(courses))
	}
	for id, p := range u.CoursesProgress {
		p.CompletedLessons = p.CompletedLessons.normalized()
		if p.Tests == nil {
			p.Tests = make(map[int]TestResult)
		}
		u.CoursesProgress[id] = p
	}
	for _, c := range courses {
		if _, ok := u.CoursesProgress[c.ID]; !ok {
			u.CoursesProgress[c.ID] = NewCourseProgress(len(c.Lessons))
		}
	}
}

// Clone returns a deep copy.
func (u User) Clone() User {
	out := u
	out.EnrolledCourses = append([]string{}, u.EnrolledCourses...)
	out.CoursesProgress = make(map[string]CourseProgress, len(u.CoursesProgress))
	for id, p := range u.CoursesProgress {
		out.CoursesProgress[id] = p.clone()
	}
	return out
}

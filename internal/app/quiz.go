package app

import (
	"time"

	"course-portal/internal/domain"
)

// PassingScore is the minimum quiz score that completes a lesson.
const PassingScore = 70

// QuizOutcome is the result of a quiz submission.
type QuizOutcome struct {
	Result domain.TestResult `json:"result"`
	Passed bool              `json:"passed"`
}

// ScoreQuiz compares each answer with the question's correct option.
// Unanswered questions count as wrong. The submitted answers are stored as given.
func ScoreQuiz(questions []domain.Question, answers map[int]int, at time.Time) (domain.TestResult, error) {
	total := len(questions)
	if total == 0 {
		return domain.TestResult{}, domain.ErrEmptyQuiz
	}

	correct := 0
	for _, q := range questions {
		if selected, ok := answers[q.ID]; ok && selected == q.Correct {
			correct++
		}
	}
	recorded := make(map[int]int, len(answers))
	for id, selected := range answers {
		recorded[id] = selected
	}

	return domain.TestResult{
		Score:        domain.Percent(correct, total),
		CorrectCount: correct,
		Total:        total,
		Answers:      recorded,
		Date:         at,
	}, nil
}

// applyQuizResult stores the result and completes the lesson on a passing score.
func applyQuizResult(p domain.CourseProgress, lessonID int, result domain.TestResult) domain.CourseProgress {
	p.Tests[lessonID] = result
	if result.Score >= PassingScore {
		p.CompletedLessons = p.CompletedLessons.Add(lessonID)
	}
	return p
}

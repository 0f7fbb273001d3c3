package attempt

import (
	"fmt"
	"time"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/grading"
)

// ManualGrade is an instructor's decision on one pending answer. Rubric
// awards take precedence over a flat Points value.
type ManualGrade struct {
	Points  *float64           `json:"points,omitempty"`
	Rubric  map[string]float64 `json:"rubric,omitempty"`
	Comment string             `json:"comment,omitempty"`
}

// ApplyManualGrade resolves a pending answer on a completed attempt and
// re-aggregates the verdict from the snapshot. Each answer can be resolved
// once.
func ApplyManualGrade(a *Attempt, questionID string, g ManualGrade, gradedBy string, now time.Time) (AnswerRecord, error) {
	if !a.Status.Terminal() {
		return AnswerRecord{}, ErrNotCompleted
	}
	q, ok := a.question(questionID)
	if !ok {
		return AnswerRecord{}, fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	rec, ok := a.Answers[questionID]
	if !ok || !rec.Pending() {
		return AnswerRecord{}, fmt.Errorf("%w: %s", ErrNotPending, questionID)
	}

	var pts float64
	switch {
	case len(g.Rubric) > 0:
		if len(q.Rubric) == 0 {
			return AnswerRecord{}, fmt.Errorf("%w: question %s has no rubric", ErrInvalidGrade, questionID)
		}
		pts, rec.Notes = grading.ScoreRubric(q.Rubric, g.Rubric, q.Points)
	case g.Points != nil:
		pts = *g.Points
		if pts < 0 {
			pts = 0
		}
		if pts > q.Points {
			pts = q.Points
		}
	default:
		return AnswerRecord{}, fmt.Errorf("%w: points or rubric required", ErrInvalidGrade)
	}

	rec.PointsEarned = pts
	rec.IsCorrect = pts >= q.Points
	switch {
	case rec.IsCorrect:
		rec.Status = grading.StatusCorrect
	case pts == 0:
		rec.Status = grading.StatusIncorrect
	default:
		rec.Status = grading.StatusPartial
	}
	rec.GradedBy = gradedBy
	at := now.Truncate(time.Second)
	rec.GradedAt = &at
	rec.Comment = g.Comment
	a.Answers[questionID] = rec

	earned := make(map[string]float64, len(a.Answers))
	a.PendingReview = false
	for id, r := range a.Answers {
		earned[id] = r.PointsEarned
		if r.Pending() {
			a.PendingReview = true
		}
	}
	v := grading.Aggregate(a.Questions, earned, a.PassingScore)
	a.EarnedPoints = v.EarnedPoints
	a.Score = v.Score
	a.Passed = v.Passed
	return rec, nil
}

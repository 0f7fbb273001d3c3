package attempt

import (
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/grading"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

type QuestionFeedback struct {
	QuestionID       string                 `json:"questionId"`
	Type             quiz.Kind              `json:"type"`
	Prompt           string                 `json:"question"`
	Options          []string               `json:"options,omitempty"`
	UserAnswer       *quiz.Answer           `json:"userAnswer"`
	IsCorrect        bool                   `json:"isCorrect"`
	Status           grading.Status         `json:"status"`
	PointsEarned     float64                `json:"pointsEarned"`
	Points           float64                `json:"points"`
	TimeSpentSeconds int                    `json:"timeSpentSeconds,omitempty"`
	CorrectAnswer    *quiz.Answer           `json:"correctAnswer,omitempty"`
	Keywords         []string               `json:"keywords,omitempty"`
	Explanation      string                 `json:"explanation,omitempty"`
	Rubric           []quiz.RubricCriterion `json:"rubric,omitempty"`
	Comment          string                 `json:"comment,omitempty"`
}

// Review is the read-only rendering of a completed attempt. Score fields are
// nil when the quiz hides scores.
type Review struct {
	AttemptID        string             `json:"attemptId"`
	QuizID           string             `json:"quizId"`
	AttemptNumber    int                `json:"attemptNumber"`
	Status           Status             `json:"status"`
	Questions        []QuestionFeedback `json:"questions"`
	TotalPoints      float64            `json:"totalPoints"`
	EarnedPoints     *float64           `json:"earnedPoints,omitempty"`
	Score            *int               `json:"score,omitempty"`
	Passed           *bool              `json:"passed,omitempty"`
	PendingReview    bool               `json:"pendingReview"`
	TimeSpentSeconds int                `json:"timeSpentSeconds"`
}

// Assemble renders per-question feedback from the attempt's snapshot. It
// does not change the attempt.
func Assemble(a Attempt, q quiz.Quiz) (Review, error) {
	if !a.Status.Terminal() {
		return Review{}, ErrNotCompleted
	}
	r := Review{
		AttemptID:        a.ID,
		QuizID:           a.QuizID,
		AttemptNumber:    a.AttemptNumber,
		Status:           a.Status,
		Questions:        make([]QuestionFeedback, 0, len(a.Questions)),
		TotalPoints:      a.TotalPoints,
		PendingReview:    a.PendingReview,
		TimeSpentSeconds: a.TimeSpentSeconds,
	}
	for _, qq := range a.Questions {
		fb := QuestionFeedback{
			QuestionID:  qq.ID,
			Type:        qq.Type,
			Prompt:      qq.Prompt,
			Options:     append([]string(nil), qq.Options...),
			Status:      grading.StatusIncorrect,
			Points:      qq.Points,
			Explanation: qq.Explanation,
			Rubric:      append([]quiz.RubricCriterion(nil), qq.Rubric...),
		}
		if rec, ok := a.Answers[qq.ID]; ok {
			ua := rec.UserAnswer
			fb.UserAnswer = &ua
			fb.IsCorrect = rec.IsCorrect
			fb.PointsEarned = rec.PointsEarned
			fb.TimeSpentSeconds = rec.TimeSpentSeconds
			fb.Comment = rec.Comment
			if rec.Status != "" {
				fb.Status = rec.Status
			}
		}
		if q.ShowCorrectAnswers && !qq.Type.ManualReview() {
			key := qq.CorrectAnswer
			fb.CorrectAnswer = &key
			fb.Keywords = append([]string(nil), qq.Keywords...)
		}
		r.Questions = append(r.Questions, fb)
	}
	if q.ShowScoreImmediately {
		earned, score, passed := a.EarnedPoints, a.Score, a.Passed
		r.EarnedPoints = &earned
		r.Score = &score
		r.Passed = &passed
	}
	return r, nil
}

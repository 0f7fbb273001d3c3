package attempt

import (
	"time"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/grading"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

// Status is both the session state and the persisted attempt status.
// Only in_progress, graded and reviewed are ever stored; submitted and
// timed_out are passed through inside a single submit call.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted"
	StatusTimedOut   Status = "timed_out"
	StatusGraded     Status = "graded"
	StatusReviewed   Status = "reviewed"
)

func (s Status) Terminal() bool { return s == StatusGraded || s == StatusReviewed }

type SubmitReason string

const (
	ReasonUser    SubmitReason = "user"
	ReasonTimeout SubmitReason = "timeout"
	ReasonExpired SubmitReason = "expired" // abandoned past the TTL
)

type AnswerRecord struct {
	QuestionID       string         `json:"questionId"`
	UserAnswer       quiz.Answer    `json:"userAnswer"`
	IsCorrect        bool           `json:"isCorrect"`
	Status           grading.Status `json:"status,omitempty"` // empty until graded
	PointsEarned     float64        `json:"pointsEarned"`
	TimeSpentSeconds int            `json:"timeSpentSeconds,omitempty"`
	Locked           bool           `json:"locked,omitempty"`
	AnsweredAt       time.Time      `json:"answeredAt"`

	GradedBy string     `json:"gradedBy,omitempty"`
	GradedAt *time.Time `json:"gradedAt,omitempty"`
	Comment  string     `json:"comment,omitempty"`
	Notes    []string   `json:"notes,omitempty"`
}

// Pending reports whether the answer awaits manual grading.
func (r AnswerRecord) Pending() bool { return r.Status == grading.StatusPending }

type Attempt struct {
	ID            string `json:"id"`
	QuizID        string `json:"quizId"`
	UserID        string `json:"userId"`
	AttemptNumber int    `json:"attemptNumber"`
	Status        Status `json:"status"`

	StartedAt     time.Time  `json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	PausedAt      *time.Time `json:"pausedAt,omitempty"`
	PausedSeconds int        `json:"pausedSeconds,omitempty"`

	// Settings captured from the quiz at start.
	Questions        []quiz.Question   `json:"questions"`
	PassingScore     int               `json:"passingScore"`
	TimeLimitSeconds int               `json:"timeLimitSeconds,omitempty"`
	Mode             quiz.FeedbackMode `json:"feedbackMode"`
	Cursor           int               `json:"cursor,omitempty"`

	Answers map[string]AnswerRecord `json:"answers"`

	TotalPoints            float64      `json:"totalPoints"`
	EarnedPoints           float64      `json:"earnedPoints"`
	Score                  int          `json:"score"`
	Passed                 bool         `json:"passed"`
	PendingReview          bool         `json:"pendingReview"`
	TimeSpentSeconds       int          `json:"timeSpentSeconds"`
	ClientTimeSpentSeconds int          `json:"clientTimeSpentSeconds,omitempty"`
	SubmitReason           SubmitReason `json:"submitReason,omitempty"`
}

// Clone copies the mutable parts of the attempt. The question snapshot is
// never mutated after start and is shared.
func (a Attempt) Clone() Attempt {
	out := a
	out.Answers = make(map[string]AnswerRecord, len(a.Answers))
	for k, v := range a.Answers {
		out.Answers[k] = v
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		out.CompletedAt = &t
	}
	if a.PausedAt != nil {
		t := *a.PausedAt
		out.PausedAt = &t
	}
	return out
}

// Public hides answer keys, explanations and keyword hints in the snapshot.
func (a Attempt) Public() Attempt {
	out := a.Clone()
	out.Questions = quiz.Quiz{Questions: a.Questions}.Public().Questions
	return out
}

func (a Attempt) question(id string) (quiz.Question, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return quiz.Question{}, false
}

// Elapsed is the active (unpaused) time since start, in whole seconds.
func (a Attempt) Elapsed(now time.Time) int {
	end := now
	if a.CompletedAt != nil {
		end = *a.CompletedAt
	}
	paused := a.PausedSeconds
	if a.PausedAt != nil && end.After(*a.PausedAt) {
		paused += int(end.Sub(*a.PausedAt) / time.Second)
	}
	e := int(end.Sub(a.StartedAt)/time.Second) - paused
	if e < 0 {
		return 0
	}
	return e
}

// Remaining is the server-authoritative time left, computed from StartedAt
// and the time limit. It returns -1 when the attempt is untimed.
func (a Attempt) Remaining(now time.Time) int {
	if a.TimeLimitSeconds <= 0 {
		return -1
	}
	r := a.TimeLimitSeconds - a.Elapsed(now)
	if r < 0 {
		return 0
	}
	return r
}

// Expired reports whether an in-progress attempt is past its time limit or
// has been open longer than abandonTTL (when abandonTTL > 0).
func (a Attempt) Expired(now time.Time, abandonTTL time.Duration) bool {
	if a.Status != StatusInProgress {
		return false
	}
	if a.TimeLimitSeconds > 0 && a.Remaining(now) == 0 {
		return true
	}
	return abandonTTL > 0 && now.Sub(a.StartedAt) >= abandonTTL
}

// History summarizes a user's prior attempts on one quiz.
type History struct {
	CompletedCount int      `json:"completedCount"`
	InProgress     *Attempt `json:"inProgress,omitempty"`
	Passed         bool     `json:"passed"`
}

func HistoryFrom(attempts []Attempt) History {
	var h History
	for i := range attempts {
		a := attempts[i]
		switch {
		case a.Status.Terminal():
			h.CompletedCount++
			if a.Passed {
				h.Passed = true
			}
		case a.Status == StatusInProgress:
			h.InProgress = &a
		}
	}
	return h
}

package attempt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/events"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *manualClock {
	return &manualClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type userKey struct{}

func asUser(uid string) context.Context {
	return context.WithValue(context.Background(), userKey{}, uid)
}

// ctxIdentity reads the user from the context; "teacher" is an instructor.
type ctxIdentity struct{}

func (ctxIdentity) CurrentUserID(ctx context.Context) (string, error) {
	uid, _ := ctx.Value(userKey{}).(string)
	if uid == "" {
		return "", ErrForbidden
	}
	return uid, nil
}

func (ctxIdentity) IsInstructor(ctx context.Context) bool {
	uid, _ := ctx.Value(userKey{}).(string)
	return uid == "teacher"
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *recorder) count(t events.Type) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// noShuffle keeps authored order so tests are deterministic.
func noShuffle(int, func(i, j int)) {}

// reverse is a deterministic "shuffle".
func reverse(n int, swap func(i, j int)) {
	for i := 0; i < n/2; i++ {
		swap(i, n-1-i)
	}
}

// scenarioQuiz: two single-choice questions worth 10 and 5, pass at 70.
func scenarioQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID:           "quiz-1",
		Title:        "Scenario",
		PassingScore: 70,
		FeedbackMode: quiz.FeedbackDeferred,
		Questions: []quiz.Question{
			{ID: "q10", Type: quiz.KindSingleChoice, Options: []string{"A", "B"}, CorrectAnswer: quiz.Text("A"), Points: 10, Order: 1},
			{ID: "q5", Type: quiz.KindSingleChoice, Options: []string{"A", "B"}, CorrectAnswer: quiz.Text("B"), Points: 5, Order: 2},
		},
	}
}

func mixedQuiz() quiz.Quiz {
	return quiz.Quiz{
		ID:                 "quiz-mixed",
		Title:              "Mixed",
		PassingScore:       50,
		ShowCorrectAnswers: true,
		FeedbackMode:       quiz.FeedbackDeferred,
		Questions: []quiz.Question{
			{ID: "single", Type: quiz.KindSingleChoice, Options: []string{"x", "y"}, CorrectAnswer: quiz.Text("x"), Points: 2, Order: 1, Explanation: "x it is"},
			{ID: "short", Type: quiz.KindShortAnswer, CorrectAnswer: quiz.Text("Paris"), Points: 2, Order: 2, Keywords: []string{"capital"}},
			{ID: "essay", Type: quiz.KindEssay, Points: 6, Order: 3, Rubric: []quiz.RubricCriterion{
				{Criterion: "thesis", Points: 2}, {Criterion: "evidence", Points: 4},
			}},
		},
	}
}

func startSession(t *testing.T, q quiz.Quiz, clock Clock) *Session {
	t.Helper()
	s := NewSession(q, "u1", SessionOptions{Policy: DefaultPolicy(), Clock: clock, Shuffle: noShuffle})
	if _, err := s.Start(History{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s
}

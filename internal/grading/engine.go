package grading

import (
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

// Status is the outcome class of a single graded answer.
type Status string

const (
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
	// StatusPending marks an answered manual-review question. It scores zero
	// until an instructor adjudicates it, but it is not "incorrect".
	StatusPending Status = "pending"
	// StatusPartial is only ever set by a human grader.
	StatusPartial Status = "partial"
)

// Result is the outcome of grading a single question response.
type Result struct {
	Status    Status  `json:"status"`
	IsCorrect bool    `json:"isCorrect"`
	Points    float64 `json:"pointsEarned"`
	MaxPoints float64 `json:"maxPoints"`
}

// Strategy grades one question kind.
type Strategy interface {
	Grade(q quiz.Question, a quiz.Answer) Result
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(q quiz.Question, a quiz.Answer) Result

func (f StrategyFunc) Grade(q quiz.Question, a quiz.Answer) Result { return f(q, a) }

// Grader routes by question kind to the correct Strategy. Grading is pure:
// no session state, no I/O.
type Grader interface {
	Grade(q quiz.Question, a quiz.Answer) Result
}

type defaultGrader struct {
	strategies map[quiz.Kind]Strategy
}

func (g *defaultGrader) Grade(q quiz.Question, a quiz.Answer) Result {
	if a.Empty() {
		return incorrect(q)
	}
	s, ok := g.strategies[q.Type]
	if !ok {
		// quizzes are validated at load time; anything that slips through
		// goes to a human rather than silently scoring
		return Result{Status: StatusPending, MaxPoints: q.Points}
	}
	return s.Grade(q, a)
}

type Option func(map[quiz.Kind]Strategy)

// WithStrategy installs or replaces the strategy for a kind.
func WithStrategy(k quiz.Kind, s Strategy) Option {
	return func(m map[quiz.Kind]Strategy) { m[k] = s }
}

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	m := map[quiz.Kind]Strategy{
		quiz.KindSingleChoice: exactStrategy{},
		quiz.KindTrueFalse:    exactStrategy{},
		quiz.KindMultiSelect:  setStrategy{},
		quiz.KindFillInBlank:  setStrategy{},
		quiz.KindShortAnswer:  shortAnswerStrategy{},
		quiz.KindEssay:        manualStrategy{},
		quiz.KindMatching:     manualStrategy{},
		quiz.KindOrdering:     manualStrategy{},
	}
	for _, o := range opts {
		o(m)
	}
	return &defaultGrader{strategies: m}
}

// --- Strategies ---

// exactStrategy: single-choice and true/false, exact string match.
type exactStrategy struct{}

func (exactStrategy) Grade(q quiz.Question, a quiz.Answer) Result {
	if a.List || q.CorrectAnswer.List {
		return incorrect(q)
	}
	if a.Text == q.CorrectAnswer.Text {
		return correct(q)
	}
	return incorrect(q)
}

// setStrategy: multi-select and fill-in-blank. All or nothing.
type setStrategy struct{}

func (setStrategy) Grade(q quiz.Question, a quiz.Answer) Result {
	if equalStringSets(a.Values(), q.CorrectAnswer.Values()) {
		return correct(q)
	}
	return incorrect(q)
}

type shortAnswerStrategy struct{}

func (shortAnswerStrategy) Grade(q quiz.Question, a quiz.Answer) Result {
	if a.List || q.CorrectAnswer.List {
		return incorrect(q)
	}
	if textMatch(a.Text, q.CorrectAnswer.Text, q.CaseSensitive) {
		return correct(q)
	}
	return incorrect(q)
}

// manualStrategy: essay, matching, ordering. Never earns points on its own.
type manualStrategy struct{}

func (manualStrategy) Grade(q quiz.Question, _ quiz.Answer) Result {
	return Result{Status: StatusPending, MaxPoints: q.Points}
}

// helpers

func correct(q quiz.Question) Result {
	return Result{Status: StatusCorrect, IsCorrect: true, Points: q.Points, MaxPoints: q.Points}
}

func incorrect(q quiz.Question) Result {
	return Result{Status: StatusIncorrect, MaxPoints: q.Points}
}

package quiz

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrQuizNotFound        = errors.New("quiz not found")
	ErrUnknownQuestionType = errors.New("unknown question type")
	ErrInvalidQuiz         = errors.New("invalid quiz")
)

var trueFalseOptions = []string{"true", "false"}

// Decode reads a quiz definition and validates it. A quiz that fails
// validation must never reach an attempt.
func Decode(r io.Reader) (Quiz, error) {
	var q Quiz
	if err := json.NewDecoder(r).Decode(&q); err != nil {
		return Quiz{}, fmt.Errorf("%w: %v", ErrInvalidQuiz, err)
	}
	if err := q.Normalize(); err != nil {
		return Quiz{}, err
	}
	return q, nil
}

// FromLessonContent decodes the legacy layout where a quiz definition was
// stored as JSON text inside a lesson's content field, possibly surrounded by
// other text.
func FromLessonContent(content string) (Quiz, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Quiz{}, fmt.Errorf("%w: no quiz payload in lesson content", ErrInvalidQuiz)
	}
	return Decode(strings.NewReader(content[start : end+1]))
}

// Normalize fills defaults (true/false options, feedback mode) and validates.
func (q *Quiz) Normalize() error {
	if q.FeedbackMode == "" {
		q.FeedbackMode = FeedbackDeferred
	}
	for i := range q.Questions {
		qq := &q.Questions[i]
		if qq.Type == KindTrueFalse && len(qq.Options) == 0 {
			qq.Options = append([]string(nil), trueFalseOptions...)
		}
		if qq.Order == 0 {
			qq.Order = i + 1
		}
	}
	return q.Validate()
}

// Validate enforces load-time rules. An unknown question type is reported
// with ErrUnknownQuestionType; every other problem with ErrInvalidQuiz.
func (q Quiz) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return fmt.Errorf("%w: id required", ErrInvalidQuiz)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz %s has no questions", ErrInvalidQuiz, q.ID)
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return fmt.Errorf("%w: passingScore %d out of range 0-100", ErrInvalidQuiz, q.PassingScore)
	}
	if q.TimeLimitSeconds < 0 {
		return fmt.Errorf("%w: negative time limit", ErrInvalidQuiz)
	}
	if q.MaxAttempts < 0 {
		return fmt.Errorf("%w: negative maxAttempts", ErrInvalidQuiz)
	}
	if q.QuestionsPerAttempt < 0 || q.QuestionsPerAttempt > len(q.Questions) {
		return fmt.Errorf("%w: questionsPerAttempt %d exceeds bank of %d", ErrInvalidQuiz, q.QuestionsPerAttempt, len(q.Questions))
	}
	switch q.FeedbackMode {
	case "", FeedbackDeferred, FeedbackImmediate:
	default:
		return fmt.Errorf("%w: unknown feedbackMode %q", ErrInvalidQuiz, q.FeedbackMode)
	}
	seen := make(map[string]bool, len(q.Questions))
	for _, qq := range q.Questions {
		if strings.TrimSpace(qq.ID) == "" {
			return fmt.Errorf("%w: question id required", ErrInvalidQuiz)
		}
		if seen[qq.ID] {
			return fmt.Errorf("%w: duplicate question id %s", ErrInvalidQuiz, qq.ID)
		}
		seen[qq.ID] = true
		if err := validateQuestion(qq); err != nil {
			return fmt.Errorf("question %s: %w", qq.ID, err)
		}
	}
	return nil
}

func validateQuestion(q Question) error {
	if _, ok := kinds[q.Type]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownQuestionType, string(q.Type))
	}
	if q.Points <= 0 {
		return fmt.Errorf("%w: points must be positive", ErrInvalidQuiz)
	}
	key := q.CorrectAnswer
	switch q.Type {
	case KindSingleChoice, KindTrueFalse:
		if key.List || key.Text == "" {
			return fmt.Errorf("%w: %s needs a single correct answer", ErrInvalidQuiz, q.Type)
		}
		if len(q.Options) > 0 && !contains(q.Options, key.Text) {
			return fmt.Errorf("%w: correct answer %q is not an option", ErrInvalidQuiz, key.Text)
		}
	case KindMultiSelect, KindFillInBlank:
		if len(key.Values()) == 0 {
			return fmt.Errorf("%w: %s needs a non-empty answer set", ErrInvalidQuiz, q.Type)
		}
	case KindShortAnswer:
		if key.List || strings.TrimSpace(key.Text) == "" {
			return fmt.Errorf("%w: short-answer needs a single correct answer", ErrInvalidQuiz)
		}
	case KindEssay:
		for _, c := range q.Rubric {
			if c.Points < 0 {
				return fmt.Errorf("%w: rubric criterion %q has negative points", ErrInvalidQuiz, c.Criterion)
			}
		}
	}
	return nil
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

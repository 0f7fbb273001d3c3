package quiz

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Kind is the question-type discriminator. Every value accepted by ParseKind
// has exactly one grading strategy in the grading package.
type Kind string

const (
	KindSingleChoice Kind = "single-choice"
	KindTrueFalse    Kind = "true-false"
	KindMultiSelect  Kind = "multi-select"
	KindFillInBlank  Kind = "fill-in-blank"
	KindShortAnswer  Kind = "short-answer"
	KindEssay        Kind = "essay"
	KindMatching     Kind = "matching"
	KindOrdering     Kind = "ordering"
)

var kinds = map[Kind]struct{}{
	KindSingleChoice: {},
	KindTrueFalse:    {},
	KindMultiSelect:  {},
	KindFillInBlank:  {},
	KindShortAnswer:  {},
	KindEssay:        {},
	KindMatching:     {},
	KindOrdering:     {},
}

// Kinds lists every supported question kind.
func Kinds() []Kind {
	return []Kind{
		KindSingleChoice, KindTrueFalse, KindMultiSelect, KindFillInBlank,
		KindShortAnswer, KindEssay, KindMatching, KindOrdering,
	}
}

// ParseKind accepts hyphen or underscore separated names, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if _, ok := kinds[k]; !ok {
		return "", ErrUnknownQuestionType
	}
	return k, nil
}

// ManualReview reports whether answers of this kind need a human grader.
func (k Kind) ManualReview() bool {
	switch k {
	case KindEssay, KindMatching, KindOrdering:
		return true
	}
	return false
}

// Answer is either a single string or an ordered list of strings. It is used
// for both user answers and answer keys.
type Answer struct {
	Text  string
	Items []string
	List  bool
}

func Text(s string) Answer        { return Answer{Text: s} }
func List(items ...string) Answer { return Answer{Items: items, List: true} }

// Empty reports whether the answer carries no content.
func (a Answer) Empty() bool {
	if a.List {
		for _, it := range a.Items {
			if strings.TrimSpace(it) != "" {
				return false
			}
		}
		return true
	}
	return strings.TrimSpace(a.Text) == ""
}

// Values returns the answer as a list; a single string becomes a one-element list.
func (a Answer) Values() []string {
	if a.List {
		return a.Items
	}
	if a.Text == "" {
		return nil
	}
	return []string{a.Text}
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.List {
		items := a.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(a.Text)
}

func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*a = Answer{}
		return nil
	case b[0] == '[':
		var items []string
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*a = Answer{Items: items, List: true}
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Answer{Text: s}
		return nil
	case bytes.Equal(b, []byte("true")) || bytes.Equal(b, []byte("false")):
		// true/false keys are sometimes authored as JSON booleans
		*a = Answer{Text: string(b)}
		return nil
	}
	return errors.New("answer must be a string or an array of strings")
}

type RubricCriterion struct {
	Criterion   string  `json:"criterion"`
	Points      float64 `json:"points"`
	Description string  `json:"description,omitempty"`
}

type Question struct {
	ID            string            `json:"id"`
	Type          Kind              `json:"type"`
	Prompt        string            `json:"question"`
	Options       []string          `json:"options,omitempty"`
	CorrectAnswer Answer            `json:"correctAnswer"`
	Explanation   string            `json:"explanation,omitempty"`
	Points        float64           `json:"points"`
	Order         int               `json:"order"`
	CaseSensitive bool              `json:"caseSensitive,omitempty"`
	Keywords      []string          `json:"keywords,omitempty"`
	Rubric        []RubricCriterion `json:"rubric,omitempty"`
}

type FeedbackMode string

const (
	FeedbackDeferred  FeedbackMode = "deferred"
	FeedbackImmediate FeedbackMode = "immediate"
)

type Quiz struct {
	ID                   string       `json:"id"`
	Title                string       `json:"title"`
	Description          string       `json:"description,omitempty"`
	Questions            []Question   `json:"questions"`
	PassingScore         int          `json:"passingScore"`
	TimeLimitSeconds     int          `json:"timeLimitSeconds,omitempty"`
	MaxAttempts          int          `json:"maxAttempts,omitempty"` // 0 = unlimited
	RandomizeQuestions   bool         `json:"randomizeQuestions,omitempty"`
	RandomizeOptions     bool         `json:"randomizeOptions,omitempty"`
	QuestionsPerAttempt  int          `json:"questionsPerAttempt,omitempty"` // 0 = all
	ShowCorrectAnswers   bool         `json:"showCorrectAnswers"`
	ShowScoreImmediately bool         `json:"showScoreImmediately"`
	FeedbackMode         FeedbackMode `json:"feedbackMode,omitempty"`

	CreatedAt int64 `json:"createdAt,omitempty"`
}

type quizAlias Quiz

// quizJSON mirrors the authored payload, where timeLimit is given in minutes
// and question types arrive as free strings.
type quizJSON struct {
	quizAlias
	TimeLimit *float64       `json:"timeLimit,omitempty"`
	Questions []questionJSON `json:"questions"`
}

type questionJSON struct {
	Question
	Type string `json:"type"`
}

func (q *Quiz) UnmarshalJSON(b []byte) error {
	var raw quizJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := Quiz(raw.quizAlias)
	if out.TimeLimitSeconds == 0 && raw.TimeLimit != nil {
		out.TimeLimitSeconds = int(*raw.TimeLimit * 60)
	}
	out.Questions = make([]Question, 0, len(raw.Questions))
	for _, rq := range raw.Questions {
		qq := rq.Question
		// unknown kinds are kept verbatim so Validate can reject the quiz
		if k, err := ParseKind(rq.Type); err == nil {
			qq.Type = k
		} else {
			qq.Type = Kind(rq.Type)
		}
		out.Questions = append(out.Questions, qq)
	}
	*q = out
	return nil
}

// TotalPoints sums every question's points.
func TotalPoints(qs []Question) float64 {
	t := 0.0
	for _, q := range qs {
		t += q.Points
	}
	return t
}

// Mode returns the feedback mode, defaulting to deferred.
func (q Quiz) Mode() FeedbackMode {
	if q.FeedbackMode == FeedbackImmediate {
		return FeedbackImmediate
	}
	return FeedbackDeferred
}

// Question looks a question up by id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, qq := range q.Questions {
		if qq.ID == id {
			return qq, true
		}
	}
	return Question{}, false
}

// Public returns a student-safe copy: answer keys, explanations and
// keyword hints are stripped.
func (q Quiz) Public() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, qq := range q.Questions {
		qq.CorrectAnswer = Answer{}
		qq.Explanation = ""
		qq.Keywords = nil
		qq.Options = append([]string(nil), qq.Options...)
		out.Questions[i] = qq
	}
	return out
}

// CloneQuestions deep-copies the question slice so later edits of the live quiz cannot
// reach a snapshot.
func CloneQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		q.Options = append([]string(nil), q.Options...)
		q.Keywords = append([]string(nil), q.Keywords...)
		q.Rubric = append([]RubricCriterion(nil), q.Rubric...)
		if q.CorrectAnswer.List {
			q.CorrectAnswer.Items = append([]string(nil), q.CorrectAnswer.Items...)
		}
		out[i] = q
	}
	return out
}

package quiz

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

const sampleQuiz = `{
  "id": "quiz-1",
  "title": "Capitals",
  "passingScore": 70,
  "timeLimit": 1,
  "maxAttempts": 2,
  "showCorrectAnswers": true,
  "showScoreImmediately": true,
  "questions": [
    {"id": "q1", "type": "single-choice", "question": "France?", "options": ["Paris", "Lyon"], "correctAnswer": "Paris", "points": 10, "explanation": "It is Paris."},
    {"id": "q2", "type": "true_false", "question": "Rome is in Italy", "correctAnswer": true, "points": 5},
    {"id": "q3", "type": "multi-select", "question": "Pick EU", "options": ["DE", "US", "FR"], "correctAnswer": ["DE", "FR"], "points": 4},
    {"id": "q4", "type": "essay", "question": "Discuss", "points": 6, "rubric": [{"criterion": "depth", "points": 6}]}
  ]
}`

func TestDecodeNormalizes(t *testing.T) {
	q, err := Decode(strings.NewReader(sampleQuiz))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if q.TimeLimitSeconds != 60 {
		t.Fatalf("timeLimit minutes not converted: %d", q.TimeLimitSeconds)
	}
	if q.Questions[1].Type != KindTrueFalse {
		t.Fatalf("underscore kind not parsed: %q", q.Questions[1].Type)
	}
	if got := q.Questions[1].Options; len(got) != 2 || got[0] != "true" {
		t.Fatalf("true/false options not defaulted: %v", got)
	}
	if q.Questions[1].CorrectAnswer.Text != "true" {
		t.Fatalf("boolean key not decoded: %+v", q.Questions[1].CorrectAnswer)
	}
	if !q.Questions[2].CorrectAnswer.List || len(q.Questions[2].CorrectAnswer.Items) != 2 {
		t.Fatalf("set key not decoded: %+v", q.Questions[2].CorrectAnswer)
	}
	if q.Mode() != FeedbackDeferred {
		t.Fatalf("default mode = %s", q.Mode())
	}
	if q.Questions[3].Order != 4 {
		t.Fatalf("order not defaulted: %d", q.Questions[3].Order)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	bad := strings.Replace(sampleQuiz, `"type": "essay"`, `"type": "hotspot"`, 1)
	_, err := Decode(strings.NewReader(bad))
	if !errors.Is(err, ErrUnknownQuestionType) {
		t.Fatalf("err = %v, want ErrUnknownQuestionType", err)
	}
}

func TestValidateRules(t *testing.T) {
	base := func() Quiz {
		q, err := Decode(strings.NewReader(sampleQuiz))
		if err != nil {
			t.Fatal(err)
		}
		return q
	}
	cases := []struct {
		name   string
		mutate func(*Quiz)
	}{
		{"missing id", func(q *Quiz) { q.ID = "" }},
		{"no questions", func(q *Quiz) { q.Questions = nil }},
		{"passing score above 100", func(q *Quiz) { q.PassingScore = 101 }},
		{"zero points", func(q *Quiz) { q.Questions[0].Points = 0 }},
		{"duplicate ids", func(q *Quiz) { q.Questions[1].ID = "q1" }},
		{"subset larger than bank", func(q *Quiz) { q.QuestionsPerAttempt = 9 }},
		{"key not an option", func(q *Quiz) { q.Questions[0].CorrectAnswer = Text("Nice") }},
		{"empty multi key", func(q *Quiz) { q.Questions[2].CorrectAnswer = List() }},
		{"bad feedback mode", func(q *Quiz) { q.FeedbackMode = "instant" }},
		{"negative max attempts", func(q *Quiz) { q.MaxAttempts = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := base()
			tc.mutate(&q)
			if err := q.Validate(); !errors.Is(err, ErrInvalidQuiz) {
				t.Fatalf("err = %v, want ErrInvalidQuiz", err)
			}
		})
	}
}

func TestAnswerJSON(t *testing.T) {
	var a Answer
	if err := json.Unmarshal([]byte(`["x","y"]`), &a); err != nil || !a.List || len(a.Items) != 2 {
		t.Fatalf("list: %+v %v", a, err)
	}
	if err := json.Unmarshal([]byte(`"x"`), &a); err != nil || a.List || a.Text != "x" {
		t.Fatalf("text: %+v %v", a, err)
	}
	if err := json.Unmarshal([]byte(`{"x":1}`), &a); err == nil {
		t.Fatal("object accepted as answer")
	}
	b, _ := json.Marshal(List())
	if string(b) != "[]" {
		t.Fatalf("empty list marshals to %s", b)
	}
}

func TestPublicStripsKeys(t *testing.T) {
	q, err := Decode(strings.NewReader(sampleQuiz))
	if err != nil {
		t.Fatal(err)
	}
	pub := q.Public()
	for _, qq := range pub.Questions {
		if !qq.CorrectAnswer.Empty() || qq.Explanation != "" {
			t.Fatalf("answer leaked in %s: %+v", qq.ID, qq)
		}
	}
	if q.Questions[0].CorrectAnswer.Text != "Paris" {
		t.Fatal("Public mutated the source quiz")
	}
}

func TestCloneQuestionsIsDeep(t *testing.T) {
	q, err := Decode(strings.NewReader(sampleQuiz))
	if err != nil {
		t.Fatal(err)
	}
	snap := CloneQuestions(q.Questions)
	q.Questions[2].CorrectAnswer.Items[0] = "US"
	q.Questions[0].Options[0] = "Marseille"
	if snap[2].CorrectAnswer.Items[0] != "DE" || snap[0].Options[0] != "Paris" {
		t.Fatal("snapshot shares memory with the live quiz")
	}
}

func TestFromLessonContent(t *testing.T) {
	content := "Intro text before the quiz.\n" + sampleQuiz + "\nTrailing notes."
	q, err := FromLessonContent(content)
	if err != nil {
		t.Fatalf("FromLessonContent: %v", err)
	}
	if q.ID != "quiz-1" || len(q.Questions) != 4 {
		t.Fatalf("got %+v", q)
	}
	if _, err := FromLessonContent("plain lesson"); !errors.Is(err, ErrInvalidQuiz) {
		t.Fatalf("err = %v", err)
	}
}

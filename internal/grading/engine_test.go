package grading

import (
	"testing"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

func TestGradeByKind(t *testing.T) {
	g := NewDefaultGrader()

	single := quiz.Question{ID: "q1", Type: quiz.KindSingleChoice, Options: []string{"A", "B", "C"}, CorrectAnswer: quiz.Text("B"), Points: 4}
	tf := quiz.Question{ID: "q2", Type: quiz.KindTrueFalse, Options: []string{"true", "false"}, CorrectAnswer: quiz.Text("false"), Points: 1}
	multi := quiz.Question{ID: "q3", Type: quiz.KindMultiSelect, CorrectAnswer: quiz.List("a", "c"), Points: 3}
	blank := quiz.Question{ID: "q4", Type: quiz.KindFillInBlank, CorrectAnswer: quiz.List("go", "chan"), Points: 2}
	short := quiz.Question{ID: "q5", Type: quiz.KindShortAnswer, CorrectAnswer: quiz.Text("Paris"), Points: 5}
	shortCS := short
	shortCS.CaseSensitive = true

	cases := []struct {
		name   string
		q      quiz.Question
		a      quiz.Answer
		status Status
		points float64
	}{
		{"single correct", single, quiz.Text("B"), StatusCorrect, 4},
		{"single wrong", single, quiz.Text("A"), StatusIncorrect, 0},
		{"single is exact, no trim", single, quiz.Text(" B"), StatusIncorrect, 0},
		{"single rejects list", single, quiz.List("B"), StatusIncorrect, 0},
		{"true/false correct", tf, quiz.Text("false"), StatusCorrect, 1},
		{"true/false wrong", tf, quiz.Text("true"), StatusIncorrect, 0},
		{"multi exact set any order", multi, quiz.List("c", "a"), StatusCorrect, 3},
		{"multi strict subset", multi, quiz.List("a"), StatusIncorrect, 0},
		{"multi strict superset", multi, quiz.List("a", "b", "c"), StatusIncorrect, 0},
		{"multi duplicate padding", multi, quiz.List("a", "a"), StatusIncorrect, 0},
		{"blank exact set", blank, quiz.List("go", "chan"), StatusCorrect, 2},
		{"blank partial overlap", blank, quiz.List("go", "func"), StatusIncorrect, 0},
		{"short insensitive lower", short, quiz.Text("paris"), StatusCorrect, 5},
		{"short insensitive trimmed", short, quiz.Text("  PARIS "), StatusCorrect, 5},
		{"short sensitive exact", shortCS, quiz.Text("Paris"), StatusCorrect, 5},
		{"short sensitive lower", shortCS, quiz.Text("paris"), StatusIncorrect, 0},
		{"short wrong", short, quiz.Text("Lyon"), StatusIncorrect, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := g.Grade(tc.q, tc.a)
			if got.Status != tc.status || got.Points != tc.points {
				t.Fatalf("got %+v, want status=%s points=%v", got, tc.status, tc.points)
			}
			if got.IsCorrect != (tc.status == StatusCorrect) {
				t.Fatalf("IsCorrect=%v inconsistent with status %s", got.IsCorrect, got.Status)
			}
			if got.MaxPoints != tc.q.Points {
				t.Fatalf("MaxPoints=%v, want %v", got.MaxPoints, tc.q.Points)
			}
		})
	}
}

func TestManualKindsNeverScore(t *testing.T) {
	g := NewDefaultGrader()
	for _, k := range []quiz.Kind{quiz.KindEssay, quiz.KindMatching, quiz.KindOrdering} {
		q := quiz.Question{ID: "m", Type: k, Points: 10, CorrectAnswer: quiz.List("1", "2")}
		for _, a := range []quiz.Answer{quiz.Text("a brilliant essay"), quiz.List("1", "2")} {
			got := g.Grade(q, a)
			if got.IsCorrect || got.Points != 0 {
				t.Fatalf("%s: manual kind earned points: %+v", k, got)
			}
			if got.Status != StatusPending {
				t.Fatalf("%s: status = %s, want pending", k, got.Status)
			}
		}
	}
}

func TestEmptyAnswersAreIncorrectForEveryKind(t *testing.T) {
	g := NewDefaultGrader()
	for _, k := range quiz.Kinds() {
		q := quiz.Question{ID: "e", Type: k, Points: 2, CorrectAnswer: quiz.Text("")}
		for _, a := range []quiz.Answer{{}, quiz.Text("   "), quiz.List(), quiz.List("", " ")} {
			got := g.Grade(q, a)
			if got.Status != StatusIncorrect || got.Points != 0 {
				t.Fatalf("%s with empty answer %+v: got %+v", k, a, got)
			}
		}
	}
}

func TestWithStrategyOverrides(t *testing.T) {
	g := NewDefaultGrader(WithStrategy(quiz.KindEssay, StrategyFunc(func(q quiz.Question, _ quiz.Answer) Result {
		return Result{Status: StatusCorrect, IsCorrect: true, Points: q.Points, MaxPoints: q.Points}
	})))
	got := g.Grade(quiz.Question{Type: quiz.KindEssay, Points: 3}, quiz.Text("x"))
	if got.Points != 3 {
		t.Fatalf("override not used: %+v", got)
	}
}

func TestUnknownKindGoesToReview(t *testing.T) {
	got := NewDefaultGrader().Grade(quiz.Question{Type: "hotspot", Points: 1}, quiz.Text("x"))
	if got.Status != StatusPending || got.Points != 0 {
		t.Fatalf("got %+v", got)
	}
}

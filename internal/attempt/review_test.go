package attempt

import (
	"errors"
	"testing"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/grading"
	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

func gradedMixed(t *testing.T) (Attempt, quiz.Quiz) {
	t.Helper()
	q := mixedQuiz()
	s := startSession(t, q, newClock())
	s.Answer("single", quiz.Text("y"))
	s.Answer("essay", quiz.Text("my essay"))
	a, err := s.Submit(0)
	if err != nil {
		t.Fatal(err)
	}
	return a, q
}

func TestAssembleShowsKeysWhenAllowed(t *testing.T) {
	a, q := gradedMixed(t)
	r, err := Assemble(a, q)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Questions) != 3 {
		t.Fatalf("questions = %d", len(r.Questions))
	}
	single := r.Questions[0]
	if single.CorrectAnswer == nil || single.CorrectAnswer.Text != "x" || single.Explanation != "x it is" {
		t.Fatalf("single = %+v", single)
	}
	if single.UserAnswer == nil || single.UserAnswer.Text != "y" || single.IsCorrect {
		t.Fatalf("user answer = %+v", single)
	}
	short := r.Questions[1]
	if short.UserAnswer != nil || short.Status != grading.StatusIncorrect || len(short.Keywords) != 1 {
		t.Fatalf("unanswered short = %+v", short)
	}
	essay := r.Questions[2]
	if essay.Status != grading.StatusPending || len(essay.Rubric) != 2 || essay.CorrectAnswer != nil {
		t.Fatalf("essay = %+v", essay)
	}
	if r.Score != nil || r.Passed != nil {
		t.Fatal("score shown although showScoreImmediately is off")
	}
	if !r.PendingReview {
		t.Fatal("pending review not surfaced")
	}
}

func TestAssembleHidesKeysKeepsRubric(t *testing.T) {
	a, q := gradedMixed(t)
	q.ShowCorrectAnswers = false
	q.ShowScoreImmediately = true
	r, err := Assemble(a, q)
	if err != nil {
		t.Fatal(err)
	}
	for _, fb := range r.Questions {
		if fb.CorrectAnswer != nil || len(fb.Keywords) > 0 {
			t.Fatalf("key leaked for %s", fb.QuestionID)
		}
	}
	if len(r.Questions[2].Rubric) != 2 {
		t.Fatal("rubric must be shown regardless of showCorrectAnswers")
	}
	if r.Score == nil || *r.Score != 0 || r.Passed == nil || *r.Passed {
		t.Fatalf("score = %v passed = %v", r.Score, r.Passed)
	}
}

func TestAssembleDoesNotMutate(t *testing.T) {
	a, q := gradedMixed(t)
	before := a.Answers["single"]
	r, _ := Assemble(a, q)
	r.Questions[0].Options[0] = "changed"
	if a.Questions[0].Options[0] == "changed" || a.Answers["single"].UserAnswer.Text != before.UserAnswer.Text || a.Status != StatusGraded {
		t.Fatal("Assemble mutated the attempt")
	}
}

func TestAssembleRequiresCompletion(t *testing.T) {
	s := startSession(t, scenarioQuiz(), newClock())
	if _, err := Assemble(s.Attempt(), scenarioQuiz()); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("err = %v", err)
	}
}

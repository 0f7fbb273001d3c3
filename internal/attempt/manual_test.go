package attempt

import (
	"errors"
	"testing"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/grading"
)

func TestApplyManualGradeRubric(t *testing.T) {
	a, _ := gradedMixed(t)
	now := newClock().Now()
	rec, err := ApplyManualGrade(&a, "essay", ManualGrade{
		Rubric:  map[string]float64{"thesis": 2, "evidence": 9, "style": 3},
		Comment: "good",
	}, "teacher", now)
	if err != nil {
		t.Fatal(err)
	}
	if rec.PointsEarned != 6 || rec.Status != grading.StatusCorrect || !rec.IsCorrect {
		t.Fatalf("rec = %+v", rec)
	}
	if len(rec.Notes) != 2 || rec.GradedBy != "teacher" || rec.GradedAt == nil {
		t.Fatalf("audit fields = %+v", rec)
	}
	if a.PendingReview || a.EarnedPoints != 6 || a.Score != 60 || !a.Passed {
		t.Fatalf("attempt = pending %v earned %v score %d passed %v", a.PendingReview, a.EarnedPoints, a.Score, a.Passed)
	}
	if _, err := ApplyManualGrade(&a, "essay", ManualGrade{Points: ptr(1)}, "teacher", now); !errors.Is(err, ErrNotPending) {
		t.Fatalf("second grade: %v", err)
	}
}

func TestApplyManualGradePointsClamped(t *testing.T) {
	cases := []struct {
		points float64
		want   float64
		status grading.Status
	}{
		{3, 3, grading.StatusPartial},
		{-2, 0, grading.StatusIncorrect},
		{50, 6, grading.StatusCorrect},
	}
	for _, tc := range cases {
		a, _ := gradedMixed(t)
		rec, err := ApplyManualGrade(&a, "essay", ManualGrade{Points: ptr(tc.points)}, "teacher", newClock().Now())
		if err != nil {
			t.Fatal(err)
		}
		if rec.PointsEarned != tc.want || rec.Status != tc.status {
			t.Fatalf("points %v: got %+v", tc.points, rec)
		}
	}
}

func TestApplyManualGradeRejects(t *testing.T) {
	a, _ := gradedMixed(t)
	now := newClock().Now()
	if _, err := ApplyManualGrade(&a, "single", ManualGrade{Points: ptr(2)}, "t", now); !errors.Is(err, ErrNotPending) {
		t.Fatalf("auto-graded answer: %v", err)
	}
	if _, err := ApplyManualGrade(&a, "ghost", ManualGrade{Points: ptr(2)}, "t", now); !errors.Is(err, ErrUnknownQuestion) {
		t.Fatalf("unknown question: %v", err)
	}
	if _, err := ApplyManualGrade(&a, "essay", ManualGrade{}, "t", now); !errors.Is(err, ErrInvalidGrade) {
		t.Fatalf("empty grade: %v", err)
	}
	open := startSession(t, mixedQuiz(), newClock()).Attempt()
	if _, err := ApplyManualGrade(&open, "essay", ManualGrade{Points: ptr(2)}, "t", now); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("in-progress attempt: %v", err)
	}
}

func ptr(f float64) *float64 { return &f }

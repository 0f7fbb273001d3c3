package grading

import (
	"testing"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

func twoQuestions() []quiz.Question {
	return []quiz.Question{
		{ID: "q10", Type: quiz.KindSingleChoice, CorrectAnswer: quiz.Text("A"), Points: 10},
		{ID: "q5", Type: quiz.KindSingleChoice, CorrectAnswer: quiz.Text("B"), Points: 5},
	}
}

func TestAggregateScenario(t *testing.T) {
	qs := twoQuestions()
	cases := []struct {
		name   string
		earned map[string]float64
		want   Verdict
	}{
		{"both correct", map[string]float64{"q10": 10, "q5": 5}, Verdict{EarnedPoints: 15, TotalPoints: 15, Score: 100, Passed: true}},
		{"only the 10", map[string]float64{"q10": 10}, Verdict{EarnedPoints: 10, TotalPoints: 15, Score: 67, Passed: false}},
		{"neither", map[string]float64{}, Verdict{EarnedPoints: 0, TotalPoints: 15, Score: 0, Passed: false}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Aggregate(qs, tc.earned, 70)
			if got != tc.want {
				t.Fatalf("got %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestAggregateFullCredit(t *testing.T) {
	qs := []quiz.Question{{ID: "a", Points: 1.5}, {ID: "b", Points: 2}, {ID: "c", Points: 7}}
	earned := map[string]float64{}
	for _, q := range qs {
		earned[q.ID] = q.Points
	}
	got := Aggregate(qs, earned, 100)
	if got.EarnedPoints != got.TotalPoints || got.TotalPoints != 10.5 || got.Score != 100 || !got.Passed {
		t.Fatalf("got %+v", got)
	}
}

func TestAggregatePassBoundary(t *testing.T) {
	qs := []quiz.Question{{ID: "a", Points: 7}, {ID: "b", Points: 3}}
	if v := Aggregate(qs, map[string]float64{"a": 7}, 70); v.Score != 70 || !v.Passed {
		t.Fatalf("score equal to passingScore must pass: %+v", v)
	}
	if v := Aggregate(qs, map[string]float64{"a": 7}, 71); v.Passed {
		t.Fatalf("score below passingScore must fail: %+v", v)
	}
	if v := Aggregate(qs, nil, 0); !v.Passed {
		t.Fatalf("passingScore 0 always passes: %+v", v)
	}
}

func TestAggregateIgnoresForeignAndClamps(t *testing.T) {
	qs := []quiz.Question{{ID: "a", Points: 4}}
	got := Aggregate(qs, map[string]float64{"a": 9, "ghost": 50}, 50)
	if got.EarnedPoints != 4 || got.TotalPoints != 4 {
		t.Fatalf("got %+v", got)
	}
}

func TestPercentRoundsHalfUp(t *testing.T) {
	cases := []struct {
		earned, total float64
		want          int
	}{
		{5, 8, 63}, // 62.5
		{1, 8, 13}, // 12.5
		{3, 8, 38}, // 37.5
		{10, 15, 67},
		{1, 3, 33},
		{0, 0, 0},
	}
	for _, tc := range cases {
		if got := Percent(tc.earned, tc.total); got != tc.want {
			t.Errorf("Percent(%v,%v) = %d, want %d", tc.earned, tc.total, got, tc.want)
		}
	}
}

func TestScoreRubricClamps(t *testing.T) {
	rubric := []quiz.RubricCriterion{
		{Criterion: "thesis", Points: 4},
		{Criterion: "evidence", Points: 6},
	}
	total, notes := ScoreRubric(rubric, map[string]float64{"thesis": 5, "evidence": -1, "style": 3}, 10)
	if total != 4 {
		t.Fatalf("total = %v, want 4", total)
	}
	if len(notes) != 2 || notes[0] != "thesis:4.00" || notes[1] != "evidence:0.00" {
		t.Fatalf("notes = %v", notes)
	}
	total, _ = ScoreRubric(rubric, map[string]float64{"thesis": 4, "evidence": 6}, 8)
	if total != 8 {
		t.Fatalf("total not capped at max: %v", total)
	}
}

package grading

import (
	"math"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

// Verdict is the aggregate outcome of an attempt.
type Verdict struct {
	EarnedPoints float64 `json:"earnedPoints"`
	TotalPoints  float64 `json:"totalPoints"`
	Score        int     `json:"score"`
	Passed       bool    `json:"passed"`
}

// Aggregate sums earned points over questions (unanswered ones count as zero)
// and compares the rounded percent against passingScore. Only the questions
// passed in contribute to totalPoints, so callers grade against a snapshot.
func Aggregate(questions []quiz.Question, earned map[string]float64, passingScore int) Verdict {
	v := Verdict{TotalPoints: quiz.TotalPoints(questions)}
	for _, q := range questions {
		p := earned[q.ID]
		if p < 0 {
			p = 0
		}
		if p > q.Points {
			p = q.Points
		}
		v.EarnedPoints += p
	}
	v.Score = Percent(v.EarnedPoints, v.TotalPoints)
	v.Passed = v.Score >= passingScore
	return v
}

// Percent rounds earned/total*100 half-up (62.5 -> 63). A zero total yields 0.
func Percent(earned, total float64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(earned / total * 100))
}

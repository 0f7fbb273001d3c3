package grading

import (
	"fmt"

	"github.com/Tiisu/wiki-spark-collaborate-sub002/internal/quiz"
)

// ScoreRubric totals per-criterion awards. Each award is clamped to the
// criterion's points and the total to max (when max > 0). Awards for unknown
// criteria are ignored.
func ScoreRubric(rubric []quiz.RubricCriterion, awarded map[string]float64, max float64) (float64, []string) {
	total := 0.0
	notes := make([]string, 0, len(rubric))
	for _, c := range rubric {
		v := awarded[c.Criterion]
		if v < 0 {
			v = 0
		}
		if v > c.Points {
			v = c.Points
		}
		total += v
		notes = append(notes, fmt.Sprintf("%s:%.2f", c.Criterion, v))
	}
	if max > 0 && total > max {
		total = max
	}
	return total, notes
}

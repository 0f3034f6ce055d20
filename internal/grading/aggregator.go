package grading

import (
	"math"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// Aggregate combines per-question results into a score report.
// Ungraded results are reported but left out of points_possible; unanswered and rejected
// results stay in the denominator with zero points.
func Aggregate(results []models.EvaluationResult) models.ScoreReport {
	report := models.ScoreReport{TotalQuestions: len(results)}

	for _, r := range results {
		if r.IsUngraded() {
			report.UngradedCount++
			report.UngradedQuestionIDs = append(report.UngradedQuestionIDs, r.QuestionID)
			continue
		}
		if r.IsCorrect {
			report.CorrectCount++
		}
		report.PointsEarned += r.PointsAwarded
		report.PointsPossible += r.PointsPossible
	}

	report.HasUngraded = report.UngradedCount > 0
	if report.PointsPossible > 0 {
		pct := math.Round(report.PointsEarned / float64(report.PointsPossible) * 100)
		report.Percentage = int(math.Max(0, math.Min(100, pct)))
	} else if len(results) > 0 {
		report.FullyUngraded = report.UngradedCount == len(results)
	}
	report.LetterGrade = LetterGrade(report.Percentage)

	return report
}

// LetterGrade maps a percentage to the A+ .. F scale.
func LetterGrade(percentage int) string {
	if percentage >= 97 {
		return "A+"
	} else if percentage >= 93 {
		return "A"
	} else if percentage >= 90 {
		return "A-"
	} else if percentage >= 87 {
		return "B+"
	} else if percentage >= 83 {
		return "B"
	} else if percentage >= 80 {
		return "B-"
	} else if percentage >= 77 {
		return "C+"
	} else if percentage >= 73 {
		return "C"
	} else if percentage >= 70 {
		return "C-"
	} else if percentage >= 67 {
		return "D+"
	} else if percentage >= 63 {
		return "D"
	} else if percentage >= 60 {
		return "D-"
	} else {
		return "F"
	}
}

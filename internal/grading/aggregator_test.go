package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

func graded(id string, awarded float64, possible int) models.EvaluationResult {
	return models.EvaluationResult{
		QuestionID:     id,
		Status:         models.StatusGraded,
		IsCorrect:      awarded == float64(possible),
		PointsAwarded:  awarded,
		PointsPossible: possible,
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		results []models.EvaluationResult
		want    models.ScoreReport
	}{
		{
			name: "empty",
			want: models.ScoreReport{LetterGrade: "F"},
		},
		{
			name:    "all correct",
			results: []models.EvaluationResult{graded("q1", 2, 2), graded("q2", 3, 3)},
			want: models.ScoreReport{
				TotalQuestions: 2, CorrectCount: 2, PointsEarned: 5, PointsPossible: 5,
				Percentage: 100, LetterGrade: "A+",
			},
		},
		{
			name: "unanswered and rejected stay in the denominator",
			results: []models.EvaluationResult{
				graded("q1", 1, 1),
				{QuestionID: "q2", Status: models.StatusUnanswered, PointsPossible: 1},
				{QuestionID: "q3", Status: models.StatusRejected, PointsPossible: 2},
			},
			want: models.ScoreReport{
				TotalQuestions: 3, CorrectCount: 1, PointsEarned: 1, PointsPossible: 4,
				Percentage: 25, LetterGrade: "F",
			},
		},
		{
			name: "ungraded is reported but not scored",
			results: []models.EvaluationResult{
				graded("q1", 3, 3),
				{QuestionID: "q2", Status: models.StatusUngraded, PointsPossible: 10},
			},
			want: models.ScoreReport{
				TotalQuestions: 2, CorrectCount: 1, PointsEarned: 3, PointsPossible: 3,
				Percentage: 100, UngradedCount: 1, UngradedQuestionIDs: []string{"q2"},
				HasUngraded: true, LetterGrade: "A+",
			},
		},
		{
			name: "fully ungraded",
			results: []models.EvaluationResult{
				{QuestionID: "q1", Status: models.StatusUngraded, PointsPossible: 1},
				{QuestionID: "q2", Status: models.StatusUngraded, PointsPossible: 1},
			},
			want: models.ScoreReport{
				TotalQuestions: 2, UngradedCount: 2, UngradedQuestionIDs: []string{"q1", "q2"},
				HasUngraded: true, FullyUngraded: true, LetterGrade: "F",
			},
		},
		{
			name:    "partial credit rounds the percentage",
			results: []models.EvaluationResult{graded("q1", 1, 3), graded("q2", 1, 3)},
			want: models.ScoreReport{
				TotalQuestions: 2, PointsEarned: 2, PointsPossible: 6,
				Percentage: 33, LetterGrade: "F",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(tt.results))
		})
	}
}

func TestAggregate_PercentageBounds(t *testing.T) {
	// Results that bypass Evaluate could claim more than possible.
	report := Aggregate([]models.EvaluationResult{graded("q1", 9, 2)})
	assert.Equal(t, 100, report.Percentage)

	report = Aggregate([]models.EvaluationResult{graded("q1", -4, 2)})
	assert.Equal(t, 0, report.Percentage)
}

func TestLetterGrade(t *testing.T) {
	tests := []struct {
		percentage int
		want       string
	}{
		{100, "A+"}, {97, "A+"}, {95, "A"}, {90, "A-"}, {88, "B+"}, {85, "B"},
		{80, "B-"}, {78, "C+"}, {75, "C"}, {70, "C-"}, {68, "D+"}, {65, "D"},
		{60, "D-"}, {59, "F"}, {0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LetterGrade(tt.percentage), "percentage %d", tt.percentage)
	}
}

package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

func TestGradebook_AddAttempt(t *testing.T) {
	g, err := NewGradebook()
	require.NoError(t, err)
	defer g.Close()

	gradedAt := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)
	require.NoError(t, g.AddAttempt(AttemptSummary{
		AttemptID:    "attempt-1",
		QuizID:       "quiz-1",
		StudentID:    "student-1",
		GradedAt:     gradedAt,
		Score:        7,
		MaxScore:     8,
		Percentage:   88,
		Grade:        "B+",
		Passed:       true,
		Ungraded:     1,
		ManualReview: 2,
	}, []models.EvaluationResult{
		{QuestionID: "q1", QuestionType: models.SingleChoice, Status: models.StatusGraded, PointsPossible: 1, Feedback: "Incorrect."},
		{QuestionID: "q2", QuestionType: models.Matching, Status: models.StatusUngraded, PointsPossible: 5, Error: "no key"},
	}))
	require.NoError(t, g.AddAttempt(AttemptSummary{AttemptID: "attempt-2", GradedAt: gradedAt, Grade: "F"}, nil))

	data, err := g.Bytes()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, QuestionsSheet}, f.GetSheetList())

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	require.Len(t, summary, 3)
	assert.Equal(t, summaryHeaders, summary[0])
	assert.Equal(t, []string{"attempt-1", "quiz-1", "student-1", "2026-03-04 10:30:00", "7", "8", "88", "B+", "Pass", "1", "2"}, summary[1])
	assert.Equal(t, "attempt-2", summary[2][0])
	assert.Equal(t, "Fail", summary[2][8])

	questions, err := f.GetRows(QuestionsSheet)
	require.NoError(t, err)
	require.Len(t, questions, 3)
	assert.Equal(t, questionHeaders, questions[0])
	assert.Equal(t, []string{"attempt-1", "q1", "single_choice", "graded", "FALSE", "0", "1", "FALSE", "Incorrect."}, questions[1][:9])
	assert.Equal(t, "ungraded", questions[2][3])
	assert.Equal(t, "no key", questions[2][9])
}

func TestGradebook_SaveAs(t *testing.T) {
	g, err := NewGradebook()
	require.NoError(t, err)
	defer g.Close()
	require.NoError(t, g.AddAttempt(AttemptSummary{AttemptID: "attempt-1"}, nil))

	path := filepath.Join(t.TempDir(), "attempt-1.xlsx")
	require.NoError(t, g.SaveAs(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	value, err := f.GetCellValue(SummarySheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "attempt-1", value)
}

package export

import (
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

const (
	SummarySheet   = "Summary"
	QuestionsSheet = "Questions"
)

var (
	summaryHeaders = []string{
		"Attempt ID", "Quiz ID", "Student ID", "Graded At", "Score", "Max Score",
		"Percentage", "Grade", "Result", "Ungraded", "Manual Review",
	}
	questionHeaders = []string{
		"Attempt ID", "Question ID", "Type", "Status", "Correct", "Points",
		"Possible", "Partial Credit", "Feedback", "Error",
	}
)

// AttemptSummary is one row of the Summary sheet
type AttemptSummary struct {
	AttemptID    string
	QuizID       string
	StudentID    string
	GradedAt     time.Time
	Score        float64
	MaxScore     int
	Percentage   int
	Grade        string
	Passed       bool
	Ungraded     int
	ManualReview int
}

// Gradebook collects graded attempts into a workbook with a Summary and a Questions sheet
type Gradebook struct {
	file        *excelize.File
	summaryRow  int
	questionRow int
}

func NewGradebook() (*Gradebook, error) {
	f := excelize.NewFile()

	// Rename the default sheet instead of leaving an empty Sheet1 behind
	if err := f.SetSheetName(f.GetSheetName(0), SummarySheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	if _, err := f.NewSheet(QuestionsSheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	g := &Gradebook{file: f, summaryRow: 1, questionRow: 1}
	if err := g.writeRow(SummarySheet, g.summaryRow, toRow(summaryHeaders)); err != nil {
		return nil, err
	}
	if err := g.writeRow(QuestionsSheet, g.questionRow, toRow(questionHeaders)); err != nil {
		return nil, err
	}
	return g, nil
}

// AddAttempt appends one attempt and its per-question results
func (g *Gradebook) AddAttempt(summary AttemptSummary, results []models.EvaluationResult) error {
	result := "Fail"
	if summary.Passed {
		result = "Pass"
	}

	g.summaryRow++
	err := g.writeRow(SummarySheet, g.summaryRow, []interface{}{
		summary.AttemptID,
		summary.QuizID,
		summary.StudentID,
		summary.GradedAt.UTC().Format("2006-01-02 15:04:05"),
		summary.Score,
		summary.MaxScore,
		summary.Percentage,
		summary.Grade,
		result,
		summary.Ungraded,
		summary.ManualReview,
	})
	if err != nil {
		return err
	}

	for _, r := range results {
		g.questionRow++
		err := g.writeRow(QuestionsSheet, g.questionRow, []interface{}{
			summary.AttemptID,
			r.QuestionID,
			string(r.QuestionType),
			string(r.Status),
			r.IsCorrect,
			r.PointsAwarded,
			r.PointsPossible,
			r.PartialCredit,
			r.Feedback,
			r.Error,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Bytes renders the workbook
func (g *Gradebook) Bytes() ([]byte, error) {
	buf, err := g.file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveAs writes the workbook to path
func (g *Gradebook) SaveAs(path string) error {
	data, err := g.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (g *Gradebook) Close() error {
	return g.file.Close()
}

func (g *Gradebook) writeRow(sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := g.file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func toRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

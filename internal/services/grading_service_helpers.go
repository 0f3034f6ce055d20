package services

import (
	"context"
	"encoding/json"
	"time"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/export"
	"github.com/SAP-F-2025/quiz-engine/internal/grading"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// checkQuestions rejects question lists that cannot be matched to answers. Content problems are
// only logged; those questions come back ungraded.
func (s *gradingService) checkQuestions(ctx context.Context, questions []models.Question) error {
	seen := make(map[string]bool, len(questions))
	for i := range questions {
		q := &questions[i]
		if q.ID == "" {
			return apperrors.NewInvalidInput("questions", "question %d has no id", i)
		}
		if seen[q.ID] {
			return apperrors.NewInvalidInput("questions", "question id %s appears twice", q.ID)
		}
		seen[q.ID] = true

		if problems := s.validator.Question().Check(q); len(problems) > 0 {
			s.logger.WarnContext(ctx, "Question has content problems",
				"question_id", q.ID,
				"type", q.Type,
				"problems", problems.Error())
		}
	}
	return nil
}

// decodeAnswers reads the attempt answers keyed by question id. Missing answers stay absent.
func decodeAnswers(attempt *models.Attempt) (map[string]json.RawMessage, error) {
	answers := make(map[string]json.RawMessage)
	if !models.HasKey(attempt.Answers) {
		return answers, nil
	}
	if err := json.Unmarshal(attempt.Answers, &answers); err != nil {
		return nil, apperrors.NewInvalidInput("answers", "answers must be an object keyed by question id: %v", err)
	}
	return answers, nil
}

func ungradedResult(q *models.Question, answer json.RawMessage, cause error) *models.EvaluationResult {
	result := &models.EvaluationResult{
		QuestionID:      q.ID,
		QuestionType:    q.Type,
		Status:          models.StatusUngraded,
		PointsPossible:  q.MaxPoints(),
		AnsweredDisplay: answer,
		Error:           cause.Error(),
	}
	result.Feedback = grading.Feedback(q.Type, result.Status, grading.Outcome{}, result.PointsPossible)
	return result
}

// manualReviewQuestionIDs lists essays and ungraded questions in question order
func manualReviewQuestionIDs(results []models.EvaluationResult) []string {
	var ids []string
	for _, r := range results {
		if r.IsUngraded() || r.QuestionType == models.Essay {
			ids = append(ids, r.QuestionID)
		}
	}
	return ids
}

// ===== EVENTS =====

func newAttemptGradedEvent(result *AttemptGradingResult) *events.GradingEvent {
	return events.NewAttemptGradedEvent(events.AttemptGradedEvent{
		AttemptID:           result.AttemptID,
		QuizID:              result.QuizID,
		StudentID:           result.StudentID,
		GradedAt:            result.GradedAt,
		Score:               result.TotalScore,
		MaxScore:            result.MaxScore,
		Percentage:          result.Percentage,
		LetterGrade:         result.Grade,
		Passed:              result.IsPassing,
		HasUngraded:         result.Report.HasUngraded,
		UngradedQuestionIDs: result.Report.UngradedQuestionIDs,
		Results:             result.Questions,
	})
}

func newManualGradingRequiredEvent(result *AttemptGradingResult) *events.GradingEvent {
	return events.NewManualGradingRequiredEvent(events.ManualGradingRequiredEvent{
		AttemptID:   result.AttemptID,
		QuizID:      result.QuizID,
		StudentID:   result.StudentID,
		RequiredAt:  time.Now().UTC(),
		QuestionIDs: result.ManualReviewQuestionIDs,
	})
}

// ===== EXPORT =====

func (r *AttemptGradingResult) Summary() export.AttemptSummary {
	return export.AttemptSummary{
		AttemptID:    r.AttemptID,
		QuizID:       r.QuizID,
		StudentID:    r.StudentID,
		GradedAt:     r.GradedAt,
		Score:        r.TotalScore,
		MaxScore:     r.MaxScore,
		Percentage:   r.Percentage,
		Grade:        r.Grade,
		Passed:       r.IsPassing,
		Ungraded:     r.Report.UngradedCount,
		ManualReview: len(r.ManualReviewQuestionIDs),
	}
}

// ExportGradebook renders graded attempts as an xlsx workbook
func ExportGradebook(results ...*AttemptGradingResult) ([]byte, error) {
	g, err := export.NewGradebook()
	if err != nil {
		return nil, err
	}
	defer g.Close()

	for _, r := range results {
		if err := g.AddAttempt(r.Summary(), r.Questions); err != nil {
			return nil, err
		}
	}
	return g.Bytes()
}

func writeGradebook(path string, result *AttemptGradingResult) error {
	g, err := export.NewGradebook()
	if err != nil {
		return err
	}
	defer g.Close()

	if err := g.AddAttempt(result.Summary(), result.Questions); err != nil {
		return err
	}
	return g.SaveAs(path)
}

package grading

import (
	"encoding/json"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// Grade translates and evaluates one raw answer. Failures stay inside the returned result:
// unanswered and rejected answers score zero and count as possible points, while a question
// that cannot be scored is marked ungraded. The returned error, if any, is the cause that was
// folded into the result so callers can log it.
func (e *Evaluator) Grade(q *models.Question, raw json.RawMessage, mapping *models.DisplayMapping) (models.EvaluationResult, error) {
	result := models.EvaluationResult{
		QuestionID:      q.ID,
		QuestionType:    q.Type,
		PointsPossible:  q.MaxPoints(),
		AnsweredDisplay: raw,
	}

	var outcome Outcome
	// A question that cannot be scored is ungraded whatever was submitted.
	err := e.CanGrade(q)
	if err == nil {
		var answer models.CanonicalAnswer
		answer, err = ToCanonical(q.Type, raw, mapping)
		if err == nil {
			result.AnsweredCanonical = answer
			outcome, err = e.Evaluate(q, answer)
		}
	}

	switch {
	case err == nil:
		result.Status = models.StatusGraded
		result.IsCorrect = outcome.IsCorrect
		result.PointsAwarded = outcome.PointsAwarded
		result.PartialCredit = outcome.PartialCredit
	case apperrors.IsUngraded(err):
		result.Status = models.StatusUngraded
	case apperrors.IsUnanswered(err):
		result.Status = models.StatusUnanswered
	default:
		result.Status = models.StatusRejected
		result.AnsweredCanonical = nil
	}
	if err != nil && !apperrors.IsUnanswered(err) {
		result.Error = err.Error()
	}
	result.Feedback = Feedback(q.Type, result.Status, outcome, result.PointsPossible)

	if result.Status == models.StatusUnanswered {
		return result, nil
	}
	return result, err
}

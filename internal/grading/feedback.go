package grading

import (
	"fmt"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// ===== FEEDBACK GENERATION =====

// Feedback returns the student-facing message for a graded result.
func Feedback(questionType models.QuestionType, status models.EvaluationStatus, outcome Outcome, pointsPossible int) string {
	switch status {
	case models.StatusUnanswered:
		return "No answer was submitted."
	case models.StatusRejected:
		return "Your answer could not be matched to the question as shown. Please reload and try again."
	case models.StatusUngraded:
		return "This question will be graded manually."
	}

	if outcome.PartialCredit {
		return fmt.Sprintf("Partially correct: %.0f of %d points.", outcome.PointsAwarded, pointsPossible)
	}

	switch questionType {
	case models.MultipleChoice, models.SingleChoice:
		if outcome.IsCorrect {
			return "Correct! Well done."
		}
		return "Incorrect answer."
	case models.TrueFalse:
		if outcome.IsCorrect {
			return "Correct!"
		}
		return "Incorrect."
	case models.FillInBlank:
		if outcome.IsCorrect {
			return "Correct answer!"
		}
		return "Your answer doesn't match the expected response. Please review the question."
	case models.Essay:
		if outcome.IsCorrect {
			return "Answer received. Essay questions may be reviewed by your instructor."
		}
		return "The essay answer is empty."
	case models.Matching:
		if outcome.IsCorrect {
			return "All items matched correctly!"
		}
		return "Some matches are incorrect. Please review your pairings."
	case models.Ordering:
		if outcome.IsCorrect {
			return "Perfect sequence!"
		}
		return "The order is not completely correct. Please review the sequence."
	default:
		if outcome.IsCorrect {
			return "Correct answer!"
		}
		return "Incorrect answer."
	}
}

package validator

import (
	"encoding/json"
	"strings"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// QuestionValidator reports content problems that keep a question from being shown or
// auto-graded. Problems are advisory: grading still runs and marks such questions ungraded.
type QuestionValidator struct{}

func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// Check validates options and answer key against the question type
func (qv *QuestionValidator) Check(q *models.Question) apperrors.ValidationErrors {
	switch q.Type {
	case models.MultipleChoice, models.SingleChoice:
		return qv.checkChoice(q)
	case models.TrueFalse:
		return qv.checkTrueFalse(q)
	case models.FillInBlank:
		return qv.checkFillBlank(q)
	case models.Essay:
		return nil
	case models.Matching:
		return qv.checkMatching(q)
	case models.Ordering:
		return qv.checkOrdering(q)
	default:
		return apperrors.ValidationErrors{
			*apperrors.NewValidationErrorWithRule("type", "is not an auto-gradeable question type", "question_type", q.Type),
		}
	}
}

func (qv *QuestionValidator) checkChoice(q *models.Question) apperrors.ValidationErrors {
	var errors apperrors.ValidationErrors

	options, err := q.OptionTexts()
	if err != nil {
		errors = append(errors, *apperrors.NewValidationErrorWithRule("options", "must be a list of option texts", "options_format", nil))
	} else if len(options) < 2 {
		errors = append(errors, *apperrors.NewValidationErrorWithRule("options", "must contain at least 2 options", "min_options", len(options)))
	}

	if !models.HasKey(q.CorrectAnswer) {
		errors = append(errors, *apperrors.NewValidationErrorWithRule("correct_answer", "is required", "required", nil))
	}

	return errors
}

func (qv *QuestionValidator) checkTrueFalse(q *models.Question) apperrors.ValidationErrors {
	if !models.HasKey(q.CorrectAnswer) {
		return apperrors.ValidationErrors{
			*apperrors.NewValidationErrorWithRule("correct_answer", "is required", "required", nil),
		}
	}
	return nil
}

func (qv *QuestionValidator) checkFillBlank(q *models.Question) apperrors.ValidationErrors {
	hasText := q.CorrectAnswerText != nil && strings.TrimSpace(*q.CorrectAnswerText) != ""
	if !hasText && !models.HasKey(q.CorrectAnswerJSON) {
		return apperrors.ValidationErrors{
			*apperrors.NewValidationErrorWithRule("correct_answer_text", "at least one accepted answer is required", "required", nil),
		}
	}
	return nil
}

func (qv *QuestionValidator) checkMatching(q *models.Question) apperrors.ValidationErrors {
	var errors apperrors.ValidationErrors

	pairs, err := q.MatchPairs()
	if err != nil {
		errors = append(errors, *apperrors.NewValidationErrorWithRule("options", "must be a list of left/right pairs", "options_format", nil))
	} else {
		if len(pairs) < 1 {
			errors = append(errors, *apperrors.NewValidationErrorWithRule("options", "must contain at least 1 pair", "min_pairs", 0))
		}
		for _, pair := range pairs {
			if strings.TrimSpace(pair.Left) == "" || strings.TrimSpace(pair.Right) == "" {
				errors = append(errors, *apperrors.NewValidationErrorWithRule("options", "pairs cannot have empty sides", "pair_content", pair))
				break
			}
		}
	}

	if !models.HasKey(q.CorrectAnswerJSON) {
		errors = append(errors, *apperrors.NewValidationErrorWithRule("correct_answer_json", "is required", "required", nil))
	} else if entries, ok := matchingKeyEntries(q.CorrectAnswerJSON); !ok {
		errors = append(errors, *apperrors.NewValidationErrorWithRule("correct_answer_json", "must map left indices to right indices", "key_format", nil))
	} else if err == nil && entries < len(pairs) {
		errors = append(errors, *apperrors.NewValidationErrorWithRule("correct_answer_json", "must cover every pair", "key_coverage", entries))
	}

	return errors
}

// matchingKeyEntries counts the pairs in a {left: right} or [right, ...] key.
func matchingKeyEntries(raw []byte) (int, bool) {
	var byLeft map[string]int
	if err := json.Unmarshal(raw, &byLeft); err == nil {
		return len(byLeft), true
	}
	var byPosition []int
	if err := json.Unmarshal(raw, &byPosition); err == nil {
		return len(byPosition), true
	}
	return 0, false
}

func (qv *QuestionValidator) checkOrdering(q *models.Question) apperrors.ValidationErrors {
	items, err := q.OptionTexts()
	if err != nil {
		return apperrors.ValidationErrors{
			*apperrors.NewValidationErrorWithRule("options", "must be a list of item texts", "options_format", nil),
		}
	}
	if len(items) < 1 {
		return apperrors.ValidationErrors{
			*apperrors.NewValidationErrorWithRule("options", "must contain at least 1 item", "min_items", 0),
		}
	}
	return nil
}

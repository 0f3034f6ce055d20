package models

import "encoding/json"

type EvaluationStatus string

const (
	StatusGraded     EvaluationStatus = "graded"
	StatusUnanswered EvaluationStatus = "unanswered"
	StatusRejected   EvaluationStatus = "rejected" // answer could not be translated or parsed
	StatusUngraded   EvaluationStatus = "ungraded" // question cannot be scored automatically
)

type EvaluationResult struct {
	QuestionID        string           `json:"question_id"`
	QuestionType      QuestionType     `json:"question_type"`
	Status            EvaluationStatus `json:"status"`
	IsCorrect         bool             `json:"is_correct"`
	PointsAwarded     float64          `json:"points_awarded"`
	PointsPossible    int              `json:"points_possible"`
	PartialCredit     bool             `json:"partial_credit"`
	AnsweredDisplay   json.RawMessage  `json:"answered_display,omitempty"`
	AnsweredCanonical CanonicalAnswer  `json:"answered_canonical,omitempty"`
	Feedback          string           `json:"feedback,omitempty"`
	Error             string           `json:"error,omitempty"`
}

// UnmarshalJSON restores AnsweredCanonical as the variant matching QuestionType.
func (r *EvaluationResult) UnmarshalJSON(data []byte) error {
	type plain EvaluationResult
	var aux struct {
		plain
		AnsweredCanonical json.RawMessage `json:"answered_canonical,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	answer, err := DecodeCanonicalAnswer(aux.QuestionType, aux.AnsweredCanonical)
	if err != nil {
		return err
	}
	*r = EvaluationResult(aux.plain)
	r.AnsweredCanonical = answer
	return nil
}

// IsUngraded reports whether the result is excluded from the score denominator.
func (r *EvaluationResult) IsUngraded() bool {
	return r.Status == StatusUngraded
}

type ScoreReport struct {
	TotalQuestions      int      `json:"total_questions"`
	CorrectCount        int      `json:"correct_count"`
	PointsEarned        float64  `json:"points_earned"`
	PointsPossible      int      `json:"points_possible"`
	Percentage          int      `json:"percentage"`
	UngradedCount       int      `json:"ungraded_count"`
	UngradedQuestionIDs []string `json:"ungraded_question_ids,omitempty"`
	HasUngraded         bool     `json:"has_ungraded"`
	FullyUngraded       bool     `json:"fully_ungraded"`
	LetterGrade         string   `json:"letter_grade"`
}

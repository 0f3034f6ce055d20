package models

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
)

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	SingleChoice   QuestionType = "single_choice"
	TrueFalse      QuestionType = "true_false"
	FillInBlank    QuestionType = "fill_blank"
	Essay          QuestionType = "essay"
	Matching       QuestionType = "matching"
	Ordering       QuestionType = "ordering"
)

// QuestionTypes lists every type the engine knows how to grade.
var QuestionTypes = []QuestionType{
	MultipleChoice,
	SingleChoice,
	TrueFalse,
	FillInBlank,
	Essay,
	Matching,
	Ordering,
}

// DefaultPoints is used when a question record carries no points.
const DefaultPoints = 1

// Question is the engine's view of a stored question record.
type Question struct {
	ID   string       `json:"id" gorm:"primaryKey;size:255" validate:"required"`
	Type QuestionType `json:"type" gorm:"not null;index" validate:"required,question_type"`
	Text string       `json:"text" gorm:"type:text"`

	// Content stored as JSONB for flexibility
	Options           datatypes.JSON `json:"options" gorm:"type:jsonb"`             // []string or []MatchPair
	CorrectAnswer     datatypes.JSON `json:"correct_answer" gorm:"type:jsonb"`      // index or []index
	CorrectAnswerText *string        `json:"correct_answer_text" gorm:"type:text"`  // fill_blank / essay
	CorrectAnswerJSON datatypes.JSON `json:"correct_answer_json" gorm:"type:jsonb"` // matching / ordering key

	Points             int   `json:"points" gorm:"default:1" validate:"min=0"`
	AllowPartialCredit *bool `json:"allow_partial_credit"`
}

// MatchPair is one row of a matching question as authored.
type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

// MaxPoints returns the points the question is worth.
func (q *Question) MaxPoints() int {
	if q.Points <= 0 {
		return DefaultPoints
	}
	return q.Points
}

// IsRandomized reports whether the question type is shown in a per-attempt order.
func (q *Question) IsRandomized() bool {
	return q.Type == Matching || q.Type == Ordering
}

// OptionTexts decodes Options as an ordered list of strings.
func (q *Question) OptionTexts() ([]string, error) {
	if len(q.Options) == 0 {
		return []string{}, nil
	}
	var items []string
	if err := json.Unmarshal(q.Options, &items); err != nil {
		return nil, fmt.Errorf("question %s: options are not a string list: %w", q.ID, err)
	}
	return items, nil
}

// MatchPairs decodes Options as matching pairs.
func (q *Question) MatchPairs() ([]MatchPair, error) {
	if len(q.Options) == 0 {
		return []MatchPair{}, nil
	}
	var pairs []MatchPair
	if err := json.Unmarshal(q.Options, &pairs); err != nil {
		return nil, fmt.Errorf("question %s: options are not matching pairs: %w", q.ID, err)
	}
	return pairs, nil
}

// HasKey reports whether a JSON key column carries a value.
func HasKey(raw datatypes.JSON) bool {
	s := string(raw)
	return len(raw) > 0 && s != "null"
}

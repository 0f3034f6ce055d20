package models

import "encoding/json"

// AnswerKind tags the variants of CanonicalAnswer.
type AnswerKind string

const (
	AnswerChoice   AnswerKind = "choice"
	AnswerText     AnswerKind = "text"
	AnswerMatching AnswerKind = "matching"
	AnswerOrdering AnswerKind = "ordering"
)

// CanonicalAnswer is a student answer expressed in stored (original) index space.
// The concrete type is one of ChoiceAnswer, TextAnswer, MatchingAnswer, OrderingAnswer.
type CanonicalAnswer interface {
	Kind() AnswerKind
}

// ChoiceAnswer holds selected option indices. Multi is false when a single index was sent.
type ChoiceAnswer struct {
	Selected []int `json:"selected"`
	Multi    bool  `json:"multi"`
}

type TextAnswer struct {
	Text string `json:"text"`
}

// MatchingAnswer maps a left original index to a right original index.
type MatchingAnswer struct {
	Pairs map[int]int `json:"pairs"`
}

// OrderingAnswer maps an original item index to its submitted 1-based position.
type OrderingAnswer struct {
	Positions map[int]int `json:"positions"`
}

func (ChoiceAnswer) Kind() AnswerKind   { return AnswerChoice }
func (TextAnswer) Kind() AnswerKind     { return AnswerText }
func (MatchingAnswer) Kind() AnswerKind { return AnswerMatching }
func (OrderingAnswer) Kind() AnswerKind { return AnswerOrdering }

// AnswerKindFor returns the variant a question type is answered with.
func AnswerKindFor(t QuestionType) AnswerKind {
	switch t {
	case FillInBlank, Essay:
		return AnswerText
	case Matching:
		return AnswerMatching
	case Ordering:
		return AnswerOrdering
	default:
		return AnswerChoice
	}
}

// DecodeCanonicalAnswer decodes a stored canonical answer into the variant used by questionType.
func DecodeCanonicalAnswer(questionType QuestionType, raw []byte) (CanonicalAnswer, error) {
	if s := string(raw); len(raw) == 0 || s == "null" {
		return nil, nil
	}

	switch AnswerKindFor(questionType) {
	case AnswerText:
		var a TextAnswer
		err := json.Unmarshal(raw, &a)
		return a, err
	case AnswerMatching:
		var a MatchingAnswer
		err := json.Unmarshal(raw, &a)
		return a, err
	case AnswerOrdering:
		var a OrderingAnswer
		err := json.Unmarshal(raw, &a)
		return a, err
	default:
		var a ChoiceAnswer
		err := json.Unmarshal(raw, &a)
		return a, err
	}
}

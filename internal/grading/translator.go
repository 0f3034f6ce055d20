package grading

import (
	"encoding/json"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// ToCanonical converts a raw answer keyed to displayed positions into stored index space.
//
// Choice, fill-in-the-blank and essay answers are never shuffled and pass through unchanged.
// Matching answers are {leftDisplay: rightDisplay} objects. Ordering answers may be a
// {originalIndex: position} object, a list of item contents, or a list of display indices.
// A nil or null raw answer returns ErrUnanswered.
func ToCanonical(questionType models.QuestionType, raw json.RawMessage, mapping *models.DisplayMapping) (models.CanonicalAnswer, error) {
	if isBlank(raw) {
		return nil, apperrors.ErrUnanswered
	}

	switch questionType {
	case models.MultipleChoice, models.SingleChoice:
		return decodeChoice(raw, "answer", false)
	case models.TrueFalse:
		return decodeChoice(raw, "answer", true)
	case models.FillInBlank, models.Essay:
		return decodeText(raw, "answer")
	case models.Matching:
		if mapping == nil || mapping.Matching == nil {
			return nil, apperrors.NewInvalidInput("mapping", "matching answer without a display mapping")
		}
		return translateMatching(raw, mapping.QuestionID, mapping.Matching)
	case models.Ordering:
		if mapping == nil || mapping.Ordering == nil {
			return nil, apperrors.NewInvalidInput("mapping", "ordering answer without a display mapping")
		}
		return translateOrdering(raw, mapping.QuestionID, mapping.Ordering)
	default:
		return nil, apperrors.NewInvalidInput("type", "unsupported question type %q", questionType)
	}
}

func translateMatching(raw json.RawMessage, questionID string, display *models.MatchingDisplay) (models.MatchingAnswer, error) {
	if jsonKind(raw) != '{' {
		return models.MatchingAnswer{}, apperrors.NewInvalidInput("answer", "matching answer must be an object")
	}
	displayed, err := decodeIndexMap(raw, "answer")
	if err != nil {
		return models.MatchingAnswer{}, err
	}

	pairs := make(map[int]int, len(displayed))
	for leftDisplay, rightDisplay := range displayed {
		left, ok := display.LeftMapping.Original(leftDisplay)
		if !ok {
			return models.MatchingAnswer{}, &apperrors.MappingError{
				QuestionID: questionID, Side: "left", DisplayIndex: leftDisplay, Size: len(display.LeftMapping),
			}
		}
		right, ok := display.RightMapping.Original(rightDisplay)
		if !ok {
			return models.MatchingAnswer{}, &apperrors.MappingError{
				QuestionID: questionID, Side: "right", DisplayIndex: rightDisplay, Size: len(display.RightMapping),
			}
		}
		pairs[left] = right
	}
	return models.MatchingAnswer{Pairs: pairs}, nil
}

func translateOrdering(raw json.RawMessage, questionID string, display *models.OrderingDisplay) (models.OrderingAnswer, error) {
	n := len(display.DisplayItems)

	switch jsonKind(raw) {
	case '{':
		positions, err := decodeIndexMap(raw, "answer")
		if err != nil {
			return models.OrderingAnswer{}, err
		}
		for original := range positions {
			if original < 0 || original >= n {
				return models.OrderingAnswer{}, &apperrors.MappingError{
					QuestionID: questionID, Side: "item", DisplayIndex: original, Size: n,
				}
			}
		}
		if !validPositions(positions, n) {
			return models.OrderingAnswer{}, apperrors.NewInvalidInput("answer", "position map must rank all %d items exactly once", n)
		}
		return models.OrderingAnswer{Positions: positions}, nil

	case '[':
		contents, displayIndices, err := decodeList(raw, "answer")
		if err != nil {
			return models.OrderingAnswer{}, err
		}
		if len(contents)+len(displayIndices) != n {
			return models.OrderingAnswer{}, apperrors.NewInvalidInput("answer", "expected %d items, got %d", n, len(contents)+len(displayIndices))
		}

		var order []int
		if contents != nil {
			resolved, missing := resolveContents(contents, display.CanonicalItems())
			if missing >= 0 {
				return models.OrderingAnswer{}, &apperrors.MappingError{
					QuestionID: questionID, Side: "item", DisplayIndex: missing, Size: n, Content: contents[missing],
				}
			}
			order = resolved
		} else {
			perm := display.Permutation()
			order = make([]int, len(displayIndices))
			seen := make(map[int]bool, len(displayIndices))
			for i, d := range displayIndices {
				original, ok := perm.Original(d)
				if !ok {
					return models.OrderingAnswer{}, &apperrors.MappingError{
						QuestionID: questionID, Side: "item", DisplayIndex: d, Size: n,
					}
				}
				if seen[d] {
					return models.OrderingAnswer{}, apperrors.NewInvalidInput("answer", "display index %d submitted twice", d)
				}
				seen[d] = true
				order[i] = original
			}
		}
		return models.OrderingAnswer{Positions: positionsFromOrder(order)}, nil

	default:
		return models.OrderingAnswer{}, apperrors.NewInvalidInput("answer", "ordering answer must be an object or array, got %s", string(raw))
	}
}

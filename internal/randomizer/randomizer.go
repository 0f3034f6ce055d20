package randomizer

import (
	"fmt"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

const (
	leftSuffix  = ":left"
	rightSuffix = ":right"
)

// RandomizeMatching shuffles the left and right columns of a matching question independently.
func RandomizeMatching(pairs []models.MatchPair, attemptID, questionID string) (*models.MatchingDisplay, error) {
	if len(pairs) < 1 {
		return nil, fmt.Errorf("question %s: matching needs at least one pair: %w", questionID, apperrors.ErrInsufficientData)
	}

	base := Seed(attemptID, questionID)
	leftMapping, err := Generate(base+leftSuffix, len(pairs))
	if err != nil {
		return nil, err
	}
	rightMapping, err := Generate(base+rightSuffix, len(pairs))
	if err != nil {
		return nil, err
	}

	display := &models.MatchingDisplay{
		LeftItems:    make([]string, len(pairs)),
		RightItems:   make([]string, len(pairs)),
		LeftMapping:  leftMapping,
		RightMapping: rightMapping,
	}
	for i := range pairs {
		display.LeftItems[i] = pairs[leftMapping[i]].Left
		display.RightItems[i] = pairs[rightMapping[i]].Right
	}
	return display, nil
}

// RandomizeOrdering shuffles an ordering question. Correct positions follow the stored order.
func RandomizeOrdering(items []string, attemptID, questionID string) *models.OrderingDisplay {
	// len(items) is never negative, so Generate cannot fail here.
	perm, _ := Generate(Seed(attemptID, questionID), len(items))

	display := &models.OrderingDisplay{DisplayItems: make([]models.OrderingItem, len(items))}
	for i, original := range perm {
		display.DisplayItems[i] = models.OrderingItem{
			Content:         items[original],
			OriginalIndex:   original,
			CorrectPosition: original + 1,
		}
	}
	return display
}

// Randomize builds the display mapping of any question for an attempt.
// Types that are never shuffled get a mapping without a permutation.
func Randomize(q *models.Question, attemptID string) (*models.DisplayMapping, error) {
	mapping := &models.DisplayMapping{
		AttemptID:  attemptID,
		QuestionID: q.ID,
		Type:       q.Type,
	}

	switch q.Type {
	case models.Matching:
		pairs, err := q.MatchPairs()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
		}
		display, err := RandomizeMatching(pairs, attemptID, q.ID)
		if err != nil {
			return nil, err
		}
		mapping.Matching = display
	case models.Ordering:
		items, err := q.OptionTexts()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
		}
		mapping.Ordering = RandomizeOrdering(items, attemptID, q.ID)
	}

	return mapping, nil
}

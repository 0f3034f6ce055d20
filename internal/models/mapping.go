package models

// Permutation maps a display index to an original index: p[display] = original.
type Permutation []int

// Inverse returns q with q[original] = display.
func (p Permutation) Inverse() Permutation {
	inv := make(Permutation, len(p))
	for display, original := range p {
		inv[original] = display
	}
	return inv
}

// Original resolves a display index. ok is false when the index is out of range.
func (p Permutation) Original(display int) (int, bool) {
	if display < 0 || display >= len(p) {
		return 0, false
	}
	return p[display], true
}

// IsIdentity reports whether the permutation leaves every index in place.
func (p Permutation) IsIdentity() bool {
	for i, v := range p {
		if i != v {
			return false
		}
	}
	return true
}

type MatchingDisplay struct {
	LeftItems    []string    `json:"left_items"`
	RightItems   []string    `json:"right_items"`
	LeftMapping  Permutation `json:"left_mapping"`
	RightMapping Permutation `json:"right_mapping"`
}

type OrderingItem struct {
	Content         string `json:"content"`
	OriginalIndex   int    `json:"original_index"`
	CorrectPosition int    `json:"correct_position"` // 1-based rank in canonical order
}

type OrderingDisplay struct {
	DisplayItems []OrderingItem `json:"display_items"`
}

// Permutation returns the display -> original mapping of the ordering.
func (o *OrderingDisplay) Permutation() Permutation {
	p := make(Permutation, len(o.DisplayItems))
	for i, item := range o.DisplayItems {
		p[i] = item.OriginalIndex
	}
	return p
}

// CanonicalItems returns the item contents in stored order.
func (o *OrderingDisplay) CanonicalItems() []string {
	items := make([]string, len(o.DisplayItems))
	for _, item := range o.DisplayItems {
		items[item.OriginalIndex] = item.Content
	}
	return items
}

// DisplayMapping is how one question is presented within one attempt.
// Exactly one of Matching / Ordering is set for randomized types; both are nil otherwise.
type DisplayMapping struct {
	AttemptID  string           `json:"attempt_id"`
	QuestionID string           `json:"question_id"`
	Type       QuestionType     `json:"type"`
	Matching   *MatchingDisplay `json:"matching,omitempty"`
	Ordering   *OrderingDisplay `json:"ordering,omitempty"`
}

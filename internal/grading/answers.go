package grading

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// ===== RAW JSON HELPERS =====

// jsonKind returns the first significant byte of a JSON value: '{', '[', '"', 't', 'f', 'n' or a digit/'-'.
func jsonKind(raw []byte) byte {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

// isBlank reports an absent or null answer.
func isBlank(raw []byte) bool {
	kind := jsonKind(raw)
	return kind == 0 || kind == 'n'
}

func toIndex(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// decodeIndexMap decodes {"<int>": <int>, ...}.
func decodeIndexMap(raw []byte, field string) (map[int]int, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, apperrors.NewInvalidInput(field, "expected an object of indices: %v", err)
	}
	out := make(map[int]int, len(obj))
	for k, v := range obj {
		key, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, apperrors.NewInvalidInput(field, "key %q is not an index", k)
		}
		val, ok := toIndex(v)
		if !ok {
			return nil, apperrors.NewInvalidInput(field, "value for key %q is not an index", k)
		}
		out[key] = val
	}
	return out, nil
}

// decodeList decodes a JSON array as either all strings or all integers.
func decodeList(raw []byte, field string) (strs []string, ints []int, err error) {
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, nil, apperrors.NewInvalidInput(field, "expected an array: %v", err)
	}
	for i, item := range items {
		switch v := item.(type) {
		case string:
			if ints != nil {
				return nil, nil, apperrors.NewInvalidInput(field, "mixed strings and indices at %d", i)
			}
			strs = append(strs, v)
		default:
			idx, ok := toIndex(v)
			if !ok || strs != nil {
				return nil, nil, apperrors.NewInvalidInput(field, "element %d is neither text nor an index", i)
			}
			ints = append(ints, idx)
		}
	}
	if strs == nil && ints == nil {
		ints = []int{}
	}
	return strs, ints, nil
}

// decodeChoice reads a single index, an index list or, for true/false, a boolean.
func decodeChoice(raw []byte, field string, allowBool bool) (models.ChoiceAnswer, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return models.ChoiceAnswer{}, apperrors.NewInvalidInput(field, "malformed choice: %v", err)
	}
	switch t := v.(type) {
	case bool:
		if !allowBool {
			return models.ChoiceAnswer{}, apperrors.NewInvalidInput(field, "boolean is only valid for true/false")
		}
		if t {
			return models.ChoiceAnswer{Selected: []int{0}}, nil
		}
		return models.ChoiceAnswer{Selected: []int{1}}, nil
	case []any:
		selected := make([]int, 0, len(t))
		for i, item := range t {
			idx, ok := toIndex(item)
			if !ok {
				return models.ChoiceAnswer{}, apperrors.NewInvalidInput(field, "element %d is not an index", i)
			}
			selected = append(selected, idx)
		}
		return models.ChoiceAnswer{Selected: selected, Multi: true}, nil
	default:
		idx, ok := toIndex(t)
		if !ok {
			return models.ChoiceAnswer{}, apperrors.NewInvalidInput(field, "expected an index or index list")
		}
		return models.ChoiceAnswer{Selected: []int{idx}}, nil
	}
}

func decodeText(raw []byte, field string) (models.TextAnswer, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return models.TextAnswer{}, apperrors.NewInvalidInput(field, "expected text: %v", err)
	}
	return models.TextAnswer{Text: text}, nil
}

// resolveContents maps each content to the index of the first unused equal item in canonical.
// It returns the position in contents of the first value that cannot be resolved, or -1.
func resolveContents(contents, canonical []string) ([]int, int) {
	used := make([]bool, len(canonical))
	indices := make([]int, len(contents))
	for i, content := range contents {
		found := -1
		for j, item := range canonical {
			if !used[j] && item == content {
				found = j
				break
			}
		}
		if found < 0 {
			return nil, i
		}
		used[found] = true
		indices[i] = found
	}
	return indices, -1
}

// positionsFromOrder turns original indices listed in submitted order into original -> 1-based position.
func positionsFromOrder(order []int) map[int]int {
	positions := make(map[int]int, len(order))
	for i, original := range order {
		positions[original] = i + 1
	}
	return positions
}

// validPositions checks that positions covers 0..n-1 with a permutation of 1..n.
func validPositions(positions map[int]int, n int) bool {
	if len(positions) != n {
		return false
	}
	seen := make([]bool, n+1)
	for original, pos := range positions {
		if original < 0 || original >= n || pos < 1 || pos > n || seen[pos] {
			return false
		}
		seen[pos] = true
	}
	return true
}

// normalizeText trims, case folds and NFC-normalizes free text for comparison.
func normalizeText(s string) string {
	return norm.NFC.String(cases.Fold().String(strings.TrimSpace(s)))
}

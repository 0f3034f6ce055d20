package grading

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// Outcome is the score of one canonical answer.
type Outcome struct {
	IsCorrect     bool
	PointsAwarded float64
	PartialCredit bool // some, but not all, points were awarded
}

// strategy grades one question type. partial reports whether proportional credit applies.
// checkKey reports, without an answer, whether the stored key can be graded.
type strategy interface {
	checkKey(q *models.Question) error
	evaluate(q *models.Question, answer models.CanonicalAnswer, partial bool) (Outcome, error)
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithPartialCreditDefault sets the policy used when a question does not set allow_partial_credit.
func WithPartialCreditDefault(questionType models.QuestionType, allow bool) Option {
	return func(e *Evaluator) { e.partialDefaults[questionType] = allow }
}

// Evaluator routes a canonical answer to the strategy for its question type.
type Evaluator struct {
	strategies      map[models.QuestionType]strategy
	partialDefaults map[models.QuestionType]bool
}

// NewEvaluator installs the built-in strategies. Matching and ordering default to all-or-nothing.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		strategies: map[models.QuestionType]strategy{
			models.MultipleChoice: choiceStrategy{},
			models.SingleChoice:   choiceStrategy{},
			models.TrueFalse:      choiceStrategy{domain: 2, allowBoolKey: true},
			models.FillInBlank:    fillBlankStrategy{},
			models.Essay:          essayStrategy{},
			models.Matching:       matchingStrategy{},
			models.Ordering:       orderingStrategy{},
		},
		partialDefaults: map[models.QuestionType]bool{
			models.Matching: false,
			models.Ordering: false,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AllowsPartialCredit resolves the partial-credit flag for a question.
func (e *Evaluator) AllowsPartialCredit(q *models.Question) bool {
	if q.AllowPartialCredit != nil {
		return *q.AllowPartialCredit
	}
	return e.partialDefaults[q.Type]
}

// IsAutoGradeable reports whether a strategy exists for the type.
func (e *Evaluator) IsAutoGradeable(questionType models.QuestionType) bool {
	_, ok := e.strategies[questionType]
	return ok
}

// CanGrade reports whether the question can be scored automatically, whatever was submitted.
// The error matches ErrUngraded.
func (e *Evaluator) CanGrade(q *models.Question) error {
	s, ok := e.strategies[q.Type]
	if !ok {
		return apperrors.NewUngraded(q.ID, "no grading strategy for type %q", q.Type)
	}
	return s.checkKey(q)
}

// Evaluate scores a canonical answer. The result never depends on how the question was shuffled.
// A question without a usable answer key returns an error matching ErrUngraded.
func (e *Evaluator) Evaluate(q *models.Question, answer models.CanonicalAnswer) (Outcome, error) {
	s, ok := e.strategies[q.Type]
	if !ok {
		return Outcome{}, apperrors.NewUngraded(q.ID, "no grading strategy for type %q", q.Type)
	}
	if answer == nil {
		return Outcome{}, apperrors.ErrUnanswered
	}
	if want := models.AnswerKindFor(q.Type); answer.Kind() != want {
		return Outcome{}, apperrors.NewInvalidInput("answer", "%s question expects a %s answer, got %s", q.Type, want, answer.Kind())
	}

	outcome, err := s.evaluate(q, answer, e.AllowsPartialCredit(q))
	if err != nil {
		return Outcome{}, err
	}

	maxPoints := float64(q.MaxPoints())
	outcome.PointsAwarded = math.Max(0, math.Min(outcome.PointsAwarded, maxPoints))
	outcome.PartialCredit = outcome.PointsAwarded > 0 && outcome.PointsAwarded < maxPoints
	return outcome, nil
}

func allOrNothing(q *models.Question, correct bool) Outcome {
	if correct {
		return Outcome{IsCorrect: true, PointsAwarded: float64(q.MaxPoints())}
	}
	return Outcome{}
}

// proportional awards round(points * hits / total).
func proportional(q *models.Question, hits, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(q.MaxPoints()) * float64(hits) / float64(total))
}

// ===== CHOICE =====

type choiceStrategy struct {
	domain       int // 0 means unbounded
	allowBoolKey bool
}

func (s choiceStrategy) checkKey(q *models.Question) error {
	_, err := s.key(q)
	return err
}

func (s choiceStrategy) key(q *models.Question) (models.ChoiceAnswer, error) {
	if !models.HasKey(q.CorrectAnswer) {
		return models.ChoiceAnswer{}, apperrors.NewUngraded(q.ID, "correct_answer is missing")
	}
	key, err := decodeChoice(q.CorrectAnswer, "correct_answer", s.allowBoolKey)
	if err != nil {
		return models.ChoiceAnswer{}, apperrors.NewUngraded(q.ID, "correct_answer is malformed: %v", err)
	}
	if len(key.Selected) == 0 {
		return models.ChoiceAnswer{}, apperrors.NewUngraded(q.ID, "correct_answer selects nothing")
	}
	if s.domain > 0 {
		for _, idx := range key.Selected {
			if idx < 0 || idx >= s.domain {
				return models.ChoiceAnswer{}, apperrors.NewUngraded(q.ID, "correct_answer %d is outside the %d options", idx, s.domain)
			}
		}
	}
	return key, nil
}

func (s choiceStrategy) evaluate(q *models.Question, answer models.CanonicalAnswer, _ bool) (Outcome, error) {
	key, err := s.key(q)
	if err != nil {
		return Outcome{}, err
	}

	submitted := answer.(models.ChoiceAnswer)
	if !key.Multi && !submitted.Multi {
		return allOrNothing(q, len(submitted.Selected) == 1 && submitted.Selected[0] == key.Selected[0]), nil
	}
	return allOrNothing(q, sameIndexSet(key.Selected, submitted.Selected)), nil
}

func toIndexSet(items []int) map[int]struct{} {
	set := make(map[int]struct{}, len(items))
	for _, i := range items {
		set[i] = struct{}{}
	}
	return set
}

func sameIndexSet(a, b []int) bool {
	as, bs := toIndexSet(a), toIndexSet(b)
	if len(as) != len(bs) {
		return false
	}
	for k := range as {
		if _, ok := bs[k]; !ok {
			return false
		}
	}
	return true
}

// ===== FREE TEXT =====

type fillBlankStrategy struct{}

func (fillBlankStrategy) checkKey(q *models.Question) error {
	if len(acceptedTexts(q)) == 0 {
		return apperrors.NewUngraded(q.ID, "no accepted answer text")
	}
	return nil
}

func (s fillBlankStrategy) evaluate(q *models.Question, answer models.CanonicalAnswer, _ bool) (Outcome, error) {
	if err := s.checkKey(q); err != nil {
		return Outcome{}, err
	}
	accepted := acceptedTexts(q)
	submitted := normalizeText(answer.(models.TextAnswer).Text)
	_, ok := accepted[submitted]
	return allOrNothing(q, ok), nil
}

// acceptedTexts collects correct_answer_text and any strings in correct_answer_json, normalized.
func acceptedTexts(q *models.Question) map[string]struct{} {
	accepted := make(map[string]struct{})
	add := func(s string) {
		if n := normalizeText(s); n != "" {
			accepted[n] = struct{}{}
		}
	}
	if q.CorrectAnswerText != nil {
		add(*q.CorrectAnswerText)
	}
	if models.HasKey(q.CorrectAnswerJSON) {
		var list []string
		if err := json.Unmarshal(q.CorrectAnswerJSON, &list); err == nil {
			for _, s := range list {
				add(s)
			}
		} else {
			var single string
			if err := json.Unmarshal(q.CorrectAnswerJSON, &single); err == nil {
				add(single)
			}
		}
	}
	return accepted
}

type essayStrategy struct{}

func (essayStrategy) checkKey(*models.Question) error { return nil }

// Essays are accepted when non-empty; real grading happens outside the engine.
func (essayStrategy) evaluate(q *models.Question, answer models.CanonicalAnswer, _ bool) (Outcome, error) {
	return allOrNothing(q, strings.TrimSpace(answer.(models.TextAnswer).Text) != ""), nil
}

// ===== MATCHING =====

type matchingStrategy struct{}

func (matchingStrategy) checkKey(q *models.Question) error {
	_, err := matchingKey(q)
	return err
}

func (matchingStrategy) evaluate(q *models.Question, answer models.CanonicalAnswer, partial bool) (Outcome, error) {
	key, err := matchingKey(q)
	if err != nil {
		return Outcome{}, err
	}

	submitted := answer.(models.MatchingAnswer).Pairs
	correct := 0
	for left, right := range key {
		if got, ok := submitted[left]; ok && got == right {
			correct++
		}
	}
	extra := 0
	for left := range submitted {
		if _, ok := key[left]; !ok {
			extra++
		}
	}

	exact := correct == len(key) && extra == 0
	if !partial || exact {
		return allOrNothing(q, exact), nil
	}
	// pairs the key does not cover count against the student
	return Outcome{PointsAwarded: proportional(q, correct, len(key)+extra)}, nil
}

// matchingKey reads correct_answer_json as {leftOriginal: rightOriginal} or [right for left 0, ...].
func matchingKey(q *models.Question) (map[int]int, error) {
	if !models.HasKey(q.CorrectAnswerJSON) {
		return nil, apperrors.NewUngraded(q.ID, "correct_answer_json is missing")
	}

	var key map[int]int
	switch jsonKind(q.CorrectAnswerJSON) {
	case '{':
		m, err := decodeIndexMap(q.CorrectAnswerJSON, "correct_answer_json")
		if err != nil {
			return nil, apperrors.NewUngraded(q.ID, "correct_answer_json is malformed: %v", err)
		}
		key = m
	case '[':
		strs, ints, err := decodeList(q.CorrectAnswerJSON, "correct_answer_json")
		if err != nil || strs != nil {
			return nil, apperrors.NewUngraded(q.ID, "correct_answer_json must list right indices")
		}
		key = make(map[int]int, len(ints))
		for left, right := range ints {
			key[left] = right
		}
	default:
		return nil, apperrors.NewUngraded(q.ID, "correct_answer_json has an unsupported shape")
	}

	if len(key) == 0 {
		return nil, apperrors.NewUngraded(q.ID, "correct_answer_json has no pairs")
	}
	return key, nil
}

// ===== ORDERING =====

type orderingStrategy struct{}

func (orderingStrategy) checkKey(q *models.Question) error {
	_, err := orderingKey(q)
	return err
}

func (orderingStrategy) evaluate(q *models.Question, answer models.CanonicalAnswer, partial bool) (Outcome, error) {
	key, err := orderingKey(q)
	if err != nil {
		return Outcome{}, err
	}

	submitted := answer.(models.OrderingAnswer).Positions
	inPlace := 0
	for original, pos := range key {
		if got, ok := submitted[original]; ok && got == pos {
			inPlace++
		}
	}

	exact := inPlace == len(key) && len(submitted) == len(key)
	if !partial || exact {
		return allOrNothing(q, exact), nil
	}
	return Outcome{PointsAwarded: proportional(q, inPlace, len(key))}, nil
}

// orderingKey returns original index -> correct 1-based position. Without correct_answer_json the
// stored option order is the answer.
func orderingKey(q *models.Question) (map[int]int, error) {
	items, err := q.OptionTexts()
	if err != nil {
		return nil, apperrors.NewUngraded(q.ID, "options are malformed: %v", err)
	}
	n := len(items)

	var key map[int]int
	if !models.HasKey(q.CorrectAnswerJSON) {
		key = make(map[int]int, n)
		for i := range items {
			key[i] = i + 1
		}
	} else {
		switch jsonKind(q.CorrectAnswerJSON) {
		case '{':
			m, err := decodeIndexMap(q.CorrectAnswerJSON, "correct_answer_json")
			if err != nil {
				return nil, apperrors.NewUngraded(q.ID, "correct_answer_json is malformed: %v", err)
			}
			key = m
		case '[':
			contents, indices, err := decodeList(q.CorrectAnswerJSON, "correct_answer_json")
			if err != nil {
				return nil, apperrors.NewUngraded(q.ID, "correct_answer_json is malformed: %v", err)
			}
			order := indices
			if contents != nil {
				resolved, missing := resolveContents(contents, items)
				if missing >= 0 {
					return nil, apperrors.NewUngraded(q.ID, "correct_answer_json item %q is not an option", contents[missing])
				}
				order = resolved
			}
			key = positionsFromOrder(order)
		default:
			return nil, apperrors.NewUngraded(q.ID, "correct_answer_json has an unsupported shape")
		}
	}

	if n == 0 {
		return nil, apperrors.NewUngraded(q.ID, "ordering question has no items")
	}
	if !validPositions(key, n) {
		return nil, apperrors.NewUngraded(q.ID, "correct_answer_json does not rank all %d items", n)
	}
	return key, nil
}

// String makes Outcome readable in logs.
func (o Outcome) String() string {
	return fmt.Sprintf("correct=%t points=%.2f partial=%t", o.IsCorrect, o.PointsAwarded, o.PartialCredit)
}

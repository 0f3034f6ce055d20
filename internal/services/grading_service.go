package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SAP-F-2025/quiz-engine/internal/cache"
	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/grading"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/randomizer"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
)

// GradingConfig holds grading policy
type GradingConfig struct {
	Workers      int
	PassingScore int // percentage
	// Partial credit used when a question leaves allow_partial_credit unset
	PartialCreditDefaults map[models.QuestionType]bool
	// When set, each graded attempt is also written to <dir>/<attempt_id>.xlsx
	GradebookDir string
}

type gradingService struct {
	evaluator *grading.Evaluator
	validator *validator.Validator
	locker    cache.Locker
	results   *cache.CacheHelper
	publisher events.EventPublisher
	logger    *slog.Logger
	config    GradingConfig
}

func NewGradingService(logger *slog.Logger, validator *validator.Validator, locker cache.Locker, results *cache.CacheHelper, publisher events.EventPublisher, config GradingConfig) GradingService {
	var opts []grading.Option
	for questionType, allow := range config.PartialCreditDefaults {
		opts = append(opts, grading.WithPartialCreditDefault(questionType, allow))
	}
	if config.Workers < 1 {
		config.Workers = 1
	}

	return &gradingService{
		evaluator: grading.NewEvaluator(opts...),
		validator: validator,
		locker:    locker,
		results:   results,
		publisher: publisher,
		logger:    logger,
		config:    config,
	}
}

// ===== PRESENTATION =====

// PresentQuestion returns the display order of a question for one attempt. The same attempt
// always sees the same order, so nothing has to be stored.
func (s *gradingService) PresentQuestion(ctx context.Context, attemptID string, question *models.Question) (*models.DisplayMapping, error) {
	if attemptID == "" {
		return nil, apperrors.NewInvalidInput("attempt_id", "attempt id is required")
	}
	if err := s.validator.ValidateQuestion(question); err != nil {
		return nil, err
	}

	mapping, err := randomizer.Randomize(question, attemptID)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to randomize question",
			"attempt_id", attemptID,
			"question_id", question.ID,
			"error", err)
		return nil, err
	}

	s.logger.DebugContext(ctx, "Question presented",
		"attempt_id", attemptID,
		"question_id", question.ID,
		"type", question.Type)

	return mapping, nil
}

// ===== EVALUATION =====

// EvaluateAnswer grades one raw answer as the student saw the question in this attempt
func (s *gradingService) EvaluateAnswer(ctx context.Context, attemptID string, question *models.Question, answer json.RawMessage) *models.EvaluationResult {
	var mapping *models.DisplayMapping
	if question.IsRandomized() {
		m, err := randomizer.Randomize(question, attemptID)
		if err != nil {
			// The stored options cannot be shown, so they cannot be graded either.
			s.logger.WarnContext(ctx, "Question cannot be randomized, leaving it ungraded",
				"attempt_id", attemptID,
				"question_id", question.ID,
				"error", err)
			return ungradedResult(question, answer, err)
		}
		mapping = m
	}

	result, err := s.evaluator.Grade(question, answer, mapping)
	switch result.Status {
	case models.StatusRejected:
		s.logger.WarnContext(ctx, "Answer rejected",
			"attempt_id", attemptID,
			"question_id", question.ID,
			"mapping_error", apperrors.IsMapping(err),
			"error", err)
	case models.StatusUngraded:
		s.logger.InfoContext(ctx, "Question left for manual grading",
			"attempt_id", attemptID,
			"question_id", question.ID,
			"reason", err)
	default:
		s.logger.DebugContext(ctx, "Answer evaluated",
			"attempt_id", attemptID,
			"question_id", question.ID,
			"status", result.Status,
			"points", result.PointsAwarded)
	}

	return &result
}

// ===== ATTEMPT GRADING =====

// GradeAttempt grades every question of an attempt, then publishes the outcome. The attempt is
// locked for the duration, and a graded attempt is answered from the result cache.
func (s *gradingService) GradeAttempt(ctx context.Context, questions []models.Question, attempt *models.Attempt) (*AttemptGradingResult, error) {
	if attempt == nil {
		return nil, apperrors.NewInvalidInput("attempt", "attempt is required")
	}
	if err := s.validator.ValidateAttempt(attempt); err != nil {
		return nil, err
	}
	if err := s.checkQuestions(ctx, questions); err != nil {
		return nil, err
	}

	answers, err := decodeAnswers(attempt)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Grading attempt",
		"attempt_id", attempt.AttemptID,
		"questions", len(questions))

	unlock, err := s.locker.Lock(ctx, attempt.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock attempt %s: %w", attempt.AttemptID, err)
	}
	defer cache.SafeUnlock(context.WithoutCancel(ctx), unlock, attempt.AttemptID)

	if cached, ok := s.cachedResult(ctx, attempt.AttemptID); ok {
		s.logger.InfoContext(ctx, "Attempt already graded, returning cached result",
			"attempt_id", attempt.AttemptID)
		if err := s.requestManualReview(ctx, cached); err != nil {
			return nil, err
		}
		return cached, nil
	}

	results, err := s.evaluateAll(ctx, attempt.AttemptID, questions, answers)
	if err != nil {
		return nil, err
	}

	result := s.buildAttemptResult(attempt, results)

	if err := s.publishGraded(ctx, result); err != nil {
		return nil, err
	}
	// From here a redelivery is answered from the cache and never republishes attempt.graded.
	cache.SafeSet(ctx, s.results, attempt.AttemptID, result, cache.ResultCacheConfig)
	s.saveGradebook(ctx, result)

	if err := s.requestManualReview(ctx, result); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Attempt graded successfully",
		"attempt_id", result.AttemptID,
		"total_score", result.TotalScore,
		"percentage", result.Percentage,
		"is_passing", result.IsPassing,
		"manual_review", len(result.ManualReviewQuestionIDs))

	return result, nil
}

// GradeSubmission grades an attempt.submitted event
func (s *gradingService) GradeSubmission(ctx context.Context, event *events.AttemptSubmittedEvent) error {
	_, err := s.GradeAttempt(ctx, event.Questions, event.Attempt())
	return err
}

// evaluateAll evaluates questions concurrently. Results keep question order.
func (s *gradingService) evaluateAll(ctx context.Context, attemptID string, questions []models.Question, answers map[string]json.RawMessage) ([]models.EvaluationResult, error) {
	results := make([]models.EvaluationResult, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i := range questions {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = *s.EvaluateAnswer(gctx, attemptID, &questions[i], answers[questions[i].ID])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("grading attempt %s interrupted: %w", attemptID, err)
	}
	return results, nil
}

func (s *gradingService) publishGraded(ctx context.Context, result *AttemptGradingResult) error {
	if s.publisher == nil {
		return nil
	}
	if err := s.publisher.PublishGradingEvent(ctx, newAttemptGradedEvent(result)); err != nil {
		return fmt.Errorf("failed to publish graded attempt %s: %w", result.AttemptID, err)
	}
	return nil
}

// requestManualReview publishes the manual grading request once per attempt and records it in
// the cached result.
func (s *gradingService) requestManualReview(ctx context.Context, result *AttemptGradingResult) error {
	if s.publisher == nil || !result.RequiresManualReview() || result.ManualReviewRequested {
		return nil
	}
	if err := s.publisher.PublishGradingEvent(ctx, newManualGradingRequiredEvent(result)); err != nil {
		return fmt.Errorf("failed to publish manual grading request for %s: %w", result.AttemptID, err)
	}

	result.ManualReviewRequested = true
	cache.SafeSet(ctx, s.results, result.AttemptID, result, cache.ResultCacheConfig)
	return nil
}

// saveGradebook writes the attempt workbook. Failures are logged; the attempt is already graded.
func (s *gradingService) saveGradebook(ctx context.Context, result *AttemptGradingResult) {
	if s.config.GradebookDir == "" {
		return
	}

	path := filepath.Join(s.config.GradebookDir, filepath.Base(result.AttemptID)+".xlsx")
	if err := writeGradebook(path, result); err != nil {
		s.logger.ErrorContext(ctx, "Failed to write gradebook",
			"attempt_id", result.AttemptID,
			"path", path,
			"error", err)
		return
	}
	s.logger.DebugContext(ctx, "Gradebook written", "attempt_id", result.AttemptID, "path", path)
}

func (s *gradingService) cachedResult(ctx context.Context, attemptID string) (*AttemptGradingResult, bool) {
	var cached AttemptGradingResult
	err := s.results.Get(ctx, attemptID, &cached)
	if err == nil {
		return &cached, true
	}
	if !errors.Is(err, cache.ErrCacheNotFound) && !errors.Is(err, cache.ErrCacheNotAvailable) {
		s.logger.WarnContext(ctx, "Result cache read failed, grading again",
			"attempt_id", attemptID,
			"error", err)
	}
	return nil, false
}

func (s *gradingService) buildAttemptResult(attempt *models.Attempt, results []models.EvaluationResult) *AttemptGradingResult {
	report := grading.Aggregate(results)

	return &AttemptGradingResult{
		AttemptID:               attempt.AttemptID,
		QuizID:                  attempt.QuizID,
		StudentID:               attempt.StudentID,
		TotalScore:              report.PointsEarned,
		MaxScore:                report.PointsPossible,
		Percentage:              report.Percentage,
		IsPassing:               !report.FullyUngraded && report.PointsPossible > 0 && report.Percentage >= s.config.PassingScore,
		Grade:                   report.LetterGrade,
		Report:                  report,
		Questions:               results,
		ManualReviewQuestionIDs: manualReviewQuestionIDs(results),
		GradedAt:                time.Now().UTC(),
	}
}

package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// ===== GRADING RELATED DTOs =====

type AttemptGradingResult struct {
	AttemptID  string  `json:"attempt_id"`
	QuizID     string  `json:"quiz_id"`
	StudentID  string  `json:"student_id"`
	TotalScore float64 `json:"total_score"`
	MaxScore   int     `json:"max_score"`
	Percentage int     `json:"percentage"`
	IsPassing  bool    `json:"is_passing"`
	Grade      string  `json:"grade"`

	Report    models.ScoreReport        `json:"report"`
	Questions []models.EvaluationResult `json:"questions"`

	// Essays and questions that could not be auto-graded
	ManualReviewQuestionIDs []string `json:"manual_review_question_ids,omitempty"`
	// Set once the manual grading request has been published
	ManualReviewRequested bool      `json:"manual_review_requested,omitempty"`
	GradedAt              time.Time `json:"graded_at"`
}

// RequiresManualReview reports whether an instructor still has to look at the attempt
func (r *AttemptGradingResult) RequiresManualReview() bool {
	return len(r.ManualReviewQuestionIDs) > 0
}

// ===== SERVICE INTERFACES =====

type GradingService interface {
	// Presentation
	PresentQuestion(ctx context.Context, attemptID string, question *models.Question) (*models.DisplayMapping, error)

	// Per-question evaluation; failures are reported inside the result
	EvaluateAnswer(ctx context.Context, attemptID string, question *models.Question, answer json.RawMessage) *models.EvaluationResult

	// Whole-attempt grading
	GradeAttempt(ctx context.Context, questions []models.Question, attempt *models.Attempt) (*AttemptGradingResult, error)
	GradeSubmission(ctx context.Context, event *events.AttemptSubmittedEvent) error
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Grading() GradingService

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// EventType represents the grading events on the bus
type EventType string

const (
	EventAttemptSubmitted      EventType = "attempt.submitted"
	EventAttemptGraded         EventType = "attempt.graded"
	EventManualGradingRequired EventType = "grading.manual_required"
)

const (
	eventSource  = "quiz-engine"
	eventVersion = "1.0"
)

// GradingEvent is the envelope shared by every event this service consumes or publishes
type GradingEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// AttemptSubmittedEvent carries everything needed to grade an attempt: the questions as stored
// and the answers as the student saw them.
type AttemptSubmittedEvent struct {
	AttemptID   string            `json:"attempt_id"`
	QuizID      string            `json:"quiz_id"`
	StudentID   string            `json:"student_id"`
	SubmittedAt time.Time         `json:"submitted_at"`
	Questions   []models.Question `json:"questions"`
	Answers     json.RawMessage   `json:"answers"`
}

// Attempt returns the submission as an attempt record
func (e *AttemptSubmittedEvent) Attempt() *models.Attempt {
	submittedAt := e.SubmittedAt
	return &models.Attempt{
		AttemptID:   e.AttemptID,
		QuizID:      e.QuizID,
		StudentID:   e.StudentID,
		Answers:     []byte(e.Answers),
		SubmittedAt: &submittedAt,
	}
}

type AttemptGradedEvent struct {
	AttemptID           string                    `json:"attempt_id"`
	QuizID              string                    `json:"quiz_id"`
	StudentID           string                    `json:"student_id"`
	GradedAt            time.Time                 `json:"graded_at"`
	Score               float64                   `json:"score"`
	MaxScore            int                       `json:"max_score"`
	Percentage          int                       `json:"percentage"`
	LetterGrade         string                    `json:"letter_grade"`
	Passed              bool                      `json:"passed"`
	HasUngraded         bool                      `json:"has_ungraded"`
	UngradedQuestionIDs []string                  `json:"ungraded_question_ids,omitempty"`
	Results             []models.EvaluationResult `json:"results"`
}

type ManualGradingRequiredEvent struct {
	AttemptID     string    `json:"attempt_id"`
	QuizID        string    `json:"quiz_id"`
	StudentID     string    `json:"student_id"`
	RequiredAt    time.Time `json:"required_at"`
	QuestionCount int       `json:"question_count"`
	QuestionIDs   []string  `json:"question_ids"`
}

// Event factory functions

func NewAttemptSubmittedEvent(data AttemptSubmittedEvent) *GradingEvent {
	return newGradingEvent(EventAttemptSubmitted, data)
}

func NewAttemptGradedEvent(data AttemptGradedEvent) *GradingEvent {
	return newGradingEvent(EventAttemptGraded, data)
}

func NewManualGradingRequiredEvent(data ManualGradingRequiredEvent) *GradingEvent {
	data.QuestionCount = len(data.QuestionIDs)
	return newGradingEvent(EventManualGradingRequired, data)
}

func newGradingEvent(eventType EventType, data interface{}) *GradingEvent {
	return &GradingEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

// GenerateEventID returns a new random event id
func GenerateEventID() string {
	return uuid.NewString()
}

// DecodeAttemptSubmitted parses an attempt.submitted envelope. Payloads of another type or
// without an attempt id are rejected as invalid input.
func DecodeAttemptSubmitted(payload []byte) (*AttemptSubmittedEvent, error) {
	var envelope struct {
		ID   string          `json:"id"`
		Type EventType       `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed event envelope: %v", apperrors.ErrInvalidInput, err)
	}
	if envelope.Type != EventAttemptSubmitted {
		return nil, apperrors.NewInvalidInput("type", "expected %s event, got %q", EventAttemptSubmitted, envelope.Type)
	}

	var event AttemptSubmittedEvent
	if err := json.Unmarshal(envelope.Data, &event); err != nil {
		return nil, fmt.Errorf("%w: malformed %s payload: %v", apperrors.ErrInvalidInput, EventAttemptSubmitted, err)
	}
	if event.AttemptID == "" {
		return nil, apperrors.NewInvalidInput("attempt_id", "submitted event %s has no attempt id", envelope.ID)
	}
	return &event, nil
}

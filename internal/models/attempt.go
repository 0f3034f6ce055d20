package models

import (
	"time"

	"gorm.io/datatypes"
)

// Attempt is one student's submission for a quiz session.
type Attempt struct {
	AttemptID string `json:"attempt_id" gorm:"primaryKey;size:255" validate:"required"`
	QuizID    string `json:"quiz_id" gorm:"not null;index;size:255"`
	StudentID string `json:"student_id" gorm:"not null;index;size:255"`

	// Answers maps question id to the raw answer as the student saw the question.
	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`

	SubmittedAt *time.Time `json:"submitted_at"`
}

package errors

import (
	"errors"
	"fmt"
)

// ===== ENGINE ERRORS =====

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrMapping          = errors.New("answer does not match the displayed question")
	ErrUngraded         = errors.New("question cannot be graded automatically")
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnanswered       = errors.New("question not answered")
)

// InvalidInputError describes a malformed value. It matches ErrInvalidInput.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input on '%s': %s", e.Field, e.Reason)
}

func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func NewInvalidInput(field, format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// MappingError is returned when a submitted display index has no entry in the permutation
// shown for the attempt. It matches ErrMapping.
type MappingError struct {
	QuestionID   string
	Side         string // "left", "right", "item"
	DisplayIndex int
	Size         int
	Content      string // set when an item was submitted by content
}

func (e *MappingError) Error() string {
	if e.Content != "" {
		return fmt.Sprintf("question %s: %s %q is not one of the displayed items", e.QuestionID, e.Side, e.Content)
	}
	return fmt.Sprintf("question %s: %s display index %d out of range [0,%d)",
		e.QuestionID, e.Side, e.DisplayIndex, e.Size)
}

func (e *MappingError) Is(target error) bool {
	return target == ErrMapping
}

// UngradedError explains why a question could not be scored. It matches ErrUngraded.
type UngradedError struct {
	QuestionID string
	Reason     string
}

func (e *UngradedError) Error() string {
	return fmt.Sprintf("question %s is ungraded: %s", e.QuestionID, e.Reason)
}

func (e *UngradedError) Is(target error) bool {
	return target == ErrUngraded
}

func NewUngraded(questionID, format string, args ...any) *UngradedError {
	return &UngradedError{QuestionID: questionID, Reason: fmt.Sprintf(format, args...)}
}

func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
func IsMapping(err error) bool      { return errors.Is(err, ErrMapping) }
func IsUngraded(err error) bool     { return errors.Is(err, ErrUngraded) }
func IsUnanswered(err error) bool   { return errors.Is(err, ErrUnanswered) }

package validator

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// Validator combines struct tag validation with question content checks
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// ValidateQuestion checks the struct tags of a question record
func (v *Validator) ValidateQuestion(q *models.Question) error {
	if err := v.ValidateStruct(q); err != nil {
		return toValidationErrors(err)
	}
	return nil
}

// ValidateAttempt checks the attempt record and that answers, when present, form a JSON object
// keyed by question id.
func (v *Validator) ValidateAttempt(a *models.Attempt) error {
	var errs apperrors.ValidationErrors
	if err := v.ValidateStruct(a); err != nil {
		errs = append(errs, toValidationErrors(err)...)
	}

	if models.HasKey(a.Answers) {
		var answers map[string]json.RawMessage
		if err := json.Unmarshal(a.Answers, &answers); err != nil {
			errs = append(errs, *apperrors.NewValidationErrorWithRule("answers",
				"must be an object keyed by question id", "answers_object", string(a.Answers)))
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Question returns the question content validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

func toValidationErrors(err error) apperrors.ValidationErrors {
	if errs := apperrors.ToValidationErrors(err); len(errs) > 0 {
		return errs
	}
	return apperrors.ValidationErrors{*apperrors.NewValidationError("", err.Error(), nil)}
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	// Question type validation
	validate.RegisterValidation("question_type", validateQuestionType)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, validType := range models.QuestionTypes {
		if string(validType) == value {
			return true
		}
	}
	return false
}

package validator

import (
	"reflect"
	"strings"

	"github.com/SAP-F-2025/exam-session-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator wraps the struct validator with the session-specific tags registered.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	registerCustomValidators(structValidator)

	return &Validator{
		structValidator: structValidator,
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate validates s and converts tag failures into ValidationErrors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// Engine exposes the underlying validator, e.g. for gin's binding.
func (v *Validator) Engine() *validator.Validate {
	return v.structValidator
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("session_type", validateSessionType)
	validate.RegisterValidation("session_status", validateSessionStatus)
	validate.RegisterValidation("part_number", validatePartNumber)
	validate.RegisterValidation("answer_choice", validateAnswerChoice)
	validate.RegisterValidation("score_section", validateScoreSection)
	validate.RegisterValidation("unique_parts", validateUniqueParts)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateSessionType(fl validator.FieldLevel) bool {
	switch models.SessionType(fl.Field().String()) {
	case models.SessionFullTest, models.SessionPractice:
		return true
	}
	return false
}

func validateSessionStatus(fl validator.FieldLevel) bool {
	validStatuses := []models.SessionStatus{
		models.SessionStarted,
		models.SessionInProgress,
		models.SessionPaused,
		models.SessionCompleted,
		models.SessionTimeout,
	}

	value := fl.Field().String()
	for _, validStatus := range validStatuses {
		if string(validStatus) == value {
			return true
		}
	}
	return false
}

func validatePartNumber(fl validator.FieldLevel) bool {
	part := fl.Field().Int()
	return part >= models.FirstPart && part <= models.LastPart
}

func validateAnswerChoice(fl validator.FieldLevel) bool {
	return models.AnswerChoice(fl.Field().String()).IsValid()
}

func validateScoreSection(fl validator.FieldLevel) bool {
	switch models.ScoreSection(fl.Field().String()) {
	case models.SectionListening, models.SectionReading:
		return true
	}
	return false
}

func validateUniqueParts(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice {
		return false
	}
	seen := make(map[int64]struct{}, field.Len())
	for i := 0; i < field.Len(); i++ {
		part := field.Index(i).Int()
		if _, dup := seen[part]; dup {
			return false
		}
		seen[part] = struct{}{}
	}
	return true
}

package errors

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestValidationError(t *testing.T) {
	err := NewValidationError("selected_parts", "must not be empty", []int{})

	if err.Field != "selected_parts" {
		t.Errorf("Expected field to be 'selected_parts', got '%s'", err.Field)
	}

	if err.Message != "must not be empty" {
		t.Errorf("Expected message to be 'must not be empty', got '%s'", err.Message)
	}

	expected := "validation error on field 'selected_parts': must not be empty"
	if err.Error() != expected {
		t.Errorf("Expected error message to be '%s', got '%s'", expected, err.Error())
	}
}

func TestValidationErrors(t *testing.T) {
	var errs ValidationErrors
	if errs.Error() != "validation failed" {
		t.Errorf("Expected 'validation failed' for empty errors, got '%s'", errs.Error())
	}

	errs = append(errs, *NewValidationError("answers", "is required", nil))
	expected := "validation failed: answers is required"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for single error, got '%s'", expected, errs.Error())
	}

	errs = append(errs, *NewValidationError("test_id", "is required", nil))
	expected = "validation failed: 2 field errors"
	if errs.Error() != expected {
		t.Errorf("Expected '%s' for multiple errors, got '%s'", expected, errs.Error())
	}

	if !errs.Has("test_id") {
		t.Errorf("Expected Has(test_id) to be true")
	}
	if errs.Has("session_type") {
		t.Errorf("Expected Has(session_type) to be false")
	}
}

func TestNewValidationErrorWithRule(t *testing.T) {
	err := NewValidationErrorWithRule("time_limit", "must be at most 300", "max", 500)

	if err.Rule != "max" {
		t.Errorf("Expected rule to be 'max', got '%s'", err.Rule)
	}
}

type nestedAnswer struct {
	QuestionID uint `validate:"required"`
}

type nestedRequest struct {
	Answers []nestedAnswer `validate:"required,min=1,dive"`
}

func TestToValidationErrors(t *testing.T) {
	v := validator.New()

	err := v.Struct(nestedRequest{Answers: []nestedAnswer{{QuestionID: 0}}})
	errs := ToValidationErrors(err)

	if len(errs) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(errs))
	}
	if errs[0].Field != "Answers[0].QuestionID" {
		t.Errorf("Expected nested field path, got '%s'", errs[0].Field)
	}
	if errs[0].Message != "is required" {
		t.Errorf("Expected 'is required', got '%s'", errs[0].Message)
	}

	if got := ToValidationErrors(nil); len(got) != 0 {
		t.Errorf("Expected no errors for nil input, got %d", len(got))
	}
}

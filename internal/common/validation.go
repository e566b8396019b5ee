package common

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator collects rule failures across several fields.
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// Check records a failure for fieldName when ok is false.
func (v *Validator) Check(ok bool, fieldName string, value interface{}, message string) *Validator {
	if !ok {
		v.errors = append(v.errors, ValidationError{Field: fieldName, Value: value, Message: message})
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

// OneOf builds a rule that accepts only the listed string values.
func OneOf(allowed ...string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		s, _ := value.(string)
		if slices.Contains(allowed, s) {
			return nil
		}
		return &ValidationError{
			Field:   fieldName,
			Value:   value,
			Message: "must be one of: " + strings.Join(allowed, ", "),
		}
	}
}

// Positive rejects zero and negative numbers.
func Positive(fieldName string, value interface{}) *ValidationError {
	var ok bool
	switch n := value.(type) {
	case int:
		ok = n > 0
	case float64:
		ok = n > 0
	}
	if ok {
		return nil
	}
	return &ValidationError{Field: fieldName, Value: value, Message: "must be positive"}
}

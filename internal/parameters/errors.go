package parameters

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies a validation failure
type Code string

const (
	CodeMissingName          Code = "MissingName"
	CodeMissingUnit          Code = "MissingUnit"
	CodeMissingRequiredValue Code = "MissingRequiredValue"
	CodeMissingRangeBounds   Code = "MissingRangeBounds"
	CodeMissingOptions       Code = "MissingOptions"
	CodeMissingCompanyValue  Code = "MissingCompanyValue"
	CodeParameterLocked      Code = "ParameterLocked"
	CodeDuplicateCategory    Code = "DuplicateCategory"
	CodeDuplicateParameter   Code = "DuplicateParameter"
)

// ValidationError is a locally recoverable rejection of a user action.
// Two ValidationErrors match under errors.Is when their codes are equal.
type ValidationError struct {
	Code    Code   `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on the error code
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewValidationError builds a ValidationError for a field
func NewValidationError(code Code, field, message string) *ValidationError {
	return &ValidationError{Code: code, Field: field, Message: message}
}

// Sentinels for errors.Is checks
var (
	ErrMissingName          = &ValidationError{Code: CodeMissingName, Message: "name is required"}
	ErrMissingUnit          = &ValidationError{Code: CodeMissingUnit, Message: "unit is required"}
	ErrMissingRequiredValue = &ValidationError{Code: CodeMissingRequiredValue, Message: "static parameters with simple display require a numeric value"}
	ErrMissingRangeBounds   = &ValidationError{Code: CodeMissingRangeBounds, Message: "static parameters with range display require numeric min and max values"}
	ErrMissingOptions       = &ValidationError{Code: CodeMissingOptions, Message: "static parameters with dropdown/filter display require options"}
	ErrMissingCompanyValue  = &ValidationError{Code: CodeMissingCompanyValue, Message: "company provided parameters require a value"}
	ErrParameterLocked      = &ValidationError{Code: CodeParameterLocked, Message: "parameter is read-only"}
	ErrDuplicateCategory    = &ValidationError{Code: CodeDuplicateCategory, Message: "category already exists"}
	ErrDuplicateParameter   = &ValidationError{Code: CodeDuplicateParameter, Message: "parameter name already exists"}
)

// Edit protocol errors
var (
	ErrEditInProgress    = errors.New("another parameter is being edited")
	ErrNotActiveEdit     = errors.New("parameter is not in edit mode")
	ErrParameterNotFound = errors.New("parameter not found")
)

// ParameterError ties a validation failure to the parameter that caused it
type ParameterError struct {
	ParameterID string `json:"parameter_id"`
	Name        string `json:"name"`
	Err         error  `json:"-"`
}

func (e ParameterError) Error() string {
	return fmt.Sprintf("parameter %q: %v", e.Name, e.Err)
}

func (e ParameterError) Unwrap() error {
	return e.Err
}

// ValidationErrors aggregates failures across a parameter set
type ValidationErrors []ParameterError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("%d invalid parameter(s): %s", len(v), strings.Join(msgs, "; "))
}

// Unwrap exposes every underlying error to errors.Is / errors.As
func (v ValidationErrors) Unwrap() []error {
	errs := make([]error, len(v))
	for i, e := range v {
		errs[i] = e
	}
	return errs
}

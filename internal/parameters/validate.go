// Package parameters holds the required-field rules of a Parameter and the
// single-edit list that enforces them while a user is editing.
package parameters

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/terra-clan/solution-builder/internal/models"
)

// Validate checks a parameter against its required-field contract.
// The contract depends on who provides the value, the interface type and
// the display type. Input and not-viewable parameters never have their
// value coerced to a number here.
func Validate(p models.Parameter) error {
	if p.IsLocked() {
		return NewValidationError(CodeParameterLocked, "is_modifiable", "parameter "+p.Name+" is read-only")
	}

	if isBlank(p.Name) {
		return NewValidationError(CodeMissingName, "name", ErrMissingName.Message)
	}
	if isBlank(p.Unit) {
		return NewValidationError(CodeMissingUnit, "unit", ErrMissingUnit.Message)
	}

	if p.UserInterface.Type == models.InterfaceStatic {
		switch p.DisplayType {
		case models.DisplaySimple:
			if !isNumeric(p.Value) {
				return NewValidationError(CodeMissingRequiredValue, "value", ErrMissingRequiredValue.Message)
			}
		case models.DisplayRange:
			if !isNumeric(p.RangeMin) || !isNumeric(p.RangeMax) {
				return NewValidationError(CodeMissingRangeBounds, "range", ErrMissingRangeBounds.Message)
			}
		case models.DisplayDropdown, models.DisplayFilter:
			if len(p.DropdownOptions) == 0 {
				return NewValidationError(CodeMissingOptions, "dropdown_options", ErrMissingOptions.Message)
			}
		}
	}

	if p.ProvidedBy == models.ProvidedByCompany && isBlank(p.Value) {
		return NewValidationError(CodeMissingCompanyValue, "value", ErrMissingCompanyValue.Message)
	}

	return nil
}

// ValidateAll validates every modifiable parameter in the set.
// Locked parameters are skipped: they are system-seeded and never mutated.
func ValidateAll(params []models.Parameter) error {
	var errs ValidationErrors
	for _, p := range params {
		if p.IsLocked() {
			continue
		}
		if err := Validate(p); err != nil {
			errs = append(errs, ParameterError{ParameterID: p.ID, Name: p.Name, Err: err})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// CheckDuplicateName rejects a name already used by another parameter.
// Comparison is trimmed and case-insensitive; the parameter with skipID is ignored.
func CheckDuplicateName(name, skipID string, existing []models.Parameter) error {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, p := range existing {
		if p.ID == skipID {
			continue
		}
		if strings.ToLower(strings.TrimSpace(p.Name)) == normalized {
			return NewValidationError(CodeDuplicateParameter, "name",
				"a parameter named \""+strings.TrimSpace(name)+"\" already exists")
		}
	}
	return nil
}

// Exportable returns the parameters that may be shown to the end consumer.
// Not-viewable parameters are never exported regardless of their output flag.
func Exportable(params []models.Parameter) []models.Parameter {
	out := make([]models.Parameter, 0, len(params))
	for _, p := range params {
		if p.IsExportable() {
			out = append(out, p)
		}
	}
	return out
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func isNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := decimal.NewFromString(s)
	return err == nil
}

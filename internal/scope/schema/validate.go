package schema

import (
	"fmt"
	"strings"
	"time"

	"obsp-workers/internal/common/validation"
	"obsp-workers/internal/models"
)

// FieldError describes one invalid response.
type FieldError struct {
	FieldID string `json:"fieldId"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.FieldID, e.Message)
}

// ValidateValue checks a single response against its field. A nil return means valid.
func ValidateValue(field models.Field, value interface{}, present bool) *FieldError {
	if !present || isEmpty(value) {
		if field.Required {
			return &FieldError{FieldID: field.ID, Code: "REQUIRED", Message: "value is required"}
		}
		return nil
	}

	switch field.Type {
	case models.FieldText, models.FieldTextarea:
		if _, ok := AsString(value); !ok {
			return typeError(field, "text")
		}
	case models.FieldEmail:
		s, ok := AsString(value)
		if !ok || !validation.ValidateEmail(s) {
			return &FieldError{FieldID: field.ID, Code: "INVALID_EMAIL", Message: "value is not a valid email address"}
		}
	case models.FieldPhone:
		s, ok := AsString(value)
		if !ok || !validation.ValidatePhone(s) {
			return &FieldError{FieldID: field.ID, Code: "INVALID_PHONE", Message: "value is not a valid phone number"}
		}
	case models.FieldNumber:
		if _, ok := AsNumber(value); !ok {
			return typeError(field, "number")
		}
	case models.FieldDate:
		s, ok := AsString(value)
		if !ok {
			return typeError(field, "date")
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return &FieldError{FieldID: field.ID, Code: "INVALID_DATE", Message: "value must be formatted YYYY-MM-DD"}
		}
	case models.FieldRadio, models.FieldSelect:
		s, ok := AsString(value)
		if !ok {
			return typeError(field, "option")
		}
		if _, found := FindOption(field, s); !found {
			return &FieldError{FieldID: field.ID, Code: "UNKNOWN_OPTION", Message: fmt.Sprintf("%q is not an available option", s)}
		}
	case models.FieldCheckbox:
		selected, ok := AsStringSlice(value)
		if !ok {
			return typeError(field, "option list")
		}
		for _, s := range selected {
			if _, found := FindOption(field, s); !found {
				return &FieldError{FieldID: field.ID, Code: "UNKNOWN_OPTION", Message: fmt.Sprintf("%q is not an available option", s)}
			}
		}
	case models.FieldFile:
		if _, ok := value.([]models.FileRef); !ok {
			if _, ok := value.([]interface{}); !ok {
				return typeError(field, "file list")
			}
		}
	case models.FieldUnknown:
		// Unknown types are never rendered, so nothing can be wrong with them.
	}
	return nil
}

// ValidatePhase checks every field of a phase against the responses.
func ValidatePhase(phase models.Phase, responses models.Responses) []FieldError {
	var errs []FieldError
	for _, field := range phase.Fields {
		value, present := responses[field.ID]
		if fe := ValidateValue(field, value, present); fe != nil {
			errs = append(errs, *fe)
		}
	}
	return errs
}

// ValidateAll checks every phase of the schema.
func ValidateAll(s *models.Schema, responses models.Responses) []FieldError {
	if s == nil {
		return nil
	}
	var errs []FieldError
	for _, phase := range s.Phases {
		errs = append(errs, ValidatePhase(phase, responses)...)
	}
	return errs
}

// JoinFieldErrors renders field errors into one line for logs and error details.
func JoinFieldErrors(errs []FieldError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "; ")
}

// FindOption returns the option whose text equals text.
func FindOption(field models.Field, text string) (models.Option, bool) {
	for _, opt := range field.Options {
		if opt.Text == text {
			return opt, true
		}
	}
	return models.Option{}, false
}

func typeError(field models.Field, want string) *FieldError {
	return &FieldError{FieldID: field.ID, Code: "INVALID_TYPE", Message: fmt.Sprintf("value must be a %s", want)}
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case []interface{}:
		return len(v) == 0
	case []models.FileRef:
		return len(v) == 0
	default:
		return false
	}
}

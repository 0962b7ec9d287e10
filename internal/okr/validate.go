package okr

import (
	"fmt"
	"strings"
)

// ValidationError captures a single field-specific validation issue.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates multiple validation problems.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "; ")
}

// Err returns nil when there are no problems.
func (errs ValidationErrors) Err() error {
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// KRInput carries the user-editable fields of a key result.
type KRInput struct {
	Title       string `json:"title"`
	Responsible string `json:"responsible"`
	Type        KRType `json:"type"`
	Weight      Value  `json:"weight"`
	StartValue  *Value `json:"startValue,omitempty"`
	Action      string `json:"action"`
}

// Validate checks required fields, the type enum and that weight is a
// non-negative number.
func (in KRInput) Validate() ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(in.Title) == "" {
		errs = append(errs, ValidationError{Field: "title", Message: "is required"})
	}
	if strings.TrimSpace(in.Responsible) == "" {
		errs = append(errs, ValidationError{Field: "responsible", Message: "is required"})
	}
	if !in.Type.Valid() {
		errs = append(errs, ValidationError{Field: "type", Message: fmt.Sprintf("must be one of %s, %s, %s (got %q)", TypeIncreasing, TypeDecreasing, TypeFluctuating, in.Type)})
	}
	if w, ok := in.Weight.Float(); !ok {
		errs = append(errs, ValidationError{Field: "weight", Message: "must be a number"})
	} else if w < 0 {
		errs = append(errs, ValidationError{Field: "weight", Message: "must be >= 0"})
	}
	if in.StartValue != nil && !in.StartValue.IsBlank() {
		if _, ok := in.StartValue.Float(); !ok {
			errs = append(errs, ValidationError{Field: "startValue", Message: "must be a number"})
		}
	}
	return errs
}

// ValidateCheckIn checks a check-in submitted by a user.
func ValidateCheckIn(ci CheckIn) ValidationErrors {
	var errs ValidationErrors
	if !IsValidPeriod(ci.Period) {
		errs = append(errs, ValidationError{Field: "period", Message: fmt.Sprintf("must be YYYYQn or YYYYMM (got %q)", ci.Period)})
	}
	if _, ok := ci.Target.Float(); !ok {
		errs = append(errs, ValidationError{Field: "target", Message: "must be a number"})
	}
	if _, ok := ci.Actual.Float(); !ok {
		errs = append(errs, ValidationError{Field: "actual", Message: "must be a number"})
	}
	return errs
}

// RequireText returns a validation error when s is blank.
func RequireText(field, s string) ValidationErrors {
	if strings.TrimSpace(s) == "" {
		return ValidationErrors{{Field: field, Message: "is required"}}
	}
	return nil
}

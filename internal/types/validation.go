// ABOUTME: Profile validation and the error types shared across VendorRisk.
// ABOUTME: Rejects unknown enum values and out-of-range numbers before scoring.

package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidProfile is the sentinel matched by every InvalidProfileError
var ErrInvalidProfile = errors.New("invalid vendor profile")

// InvalidProfileError reports a profile field holding a value outside its declared set or range
type InvalidProfileError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidProfileError) Error() string {
	return fmt.Sprintf("invalid profile field %s=%q: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidProfileError) Unwrap() error {
	return ErrInvalidProfile
}

var profileValidator = newProfileValidator()

func newProfileValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their wire names so errors match the submitted document
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks enum membership and numeric ranges. Empty enum values are
// treated as absent and pass; anything else outside the declared set fails.
func (p VendorProfile) Validate() error {
	err := profileValidator.Struct(p)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return fmt.Errorf("failed to validate profile: %w", err)
	}

	fieldErr := validationErrors[0]
	field := strings.TrimPrefix(fieldErr.Namespace(), "VendorProfile.")

	return &InvalidProfileError{
		Field:  field,
		Value:  fmt.Sprintf("%v", fieldErr.Value()),
		Reason: describeValidationTag(fieldErr.Tag(), fieldErr.Param()),
	}
}

func describeValidationTag(tag, param string) string {
	switch tag {
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "required":
		return "must not be empty"
	default:
		return "failed " + tag + " check"
	}
}

// Package validator validates request payloads with go-playground/validator
// plus the tags the intake endpoints need:
//
//	email_addr  address accepted by sanitize.IsValidEmail
//	http_url    absolute http or https URL
//	safe_text   no script tags, event handlers or similar injection markers
//	slug        lowercase letters, digits and single hyphens
//
// Errors are reported per field, by JSON name.
package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/makerstokyo/api/pkg/sanitize"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Validator wraps the go-playground validator. Safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// ValidationError is one failed field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is returned by Validate when any field fails.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}

// optional wraps a check so empty strings pass; "required" handles those.
func optional(check func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || check(s)
	}
}

var customTags = map[string]validator.Func{
	"email_addr": optional(sanitize.IsValidEmail),
	"http_url":   optional(sanitize.IsValidURL),
	"slug":       optional(slugRegex.MatchString),
	"safe_text": func(fl validator.FieldLevel) bool {
		return !sanitize.ContainsSuspiciousPattern(fl.Field().String())
	},
}

// New creates a Validator with the custom tags registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	for tag, fn := range customTags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("validator: register %s: %v", tag, err))
		}
	}
	return &Validator{validate: v}
}

// Validate checks s and returns ValidationErrors when any field fails.
// Other errors, such as passing a non-struct, are returned unchanged.
func (v *Validator) Validate(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, len(fieldErrs))
	for i, e := range fieldErrs {
		out[i] = ValidationError{Field: e.Field(), Message: message(e)}
	}
	return out
}

// Var validates a single value against a tag string.
func (v *Validator) Var(field any, tag string) error {
	return v.validate.Var(field, tag)
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", e.Param())
	case "email_addr":
		return "must be a valid email address"
	case "http_url":
		return "must be a valid http or https URL"
	case "safe_text":
		return "contains disallowed content"
	case "slug":
		return "must contain only lowercase letters, numbers and hyphens"
	case "printascii":
		return "must contain only printable ASCII characters"
	default:
		return fmt.Sprintf("failed on '%s' validation", e.Tag())
	}
}

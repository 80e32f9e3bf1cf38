package util

import (
	"errors"
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate   *validator.Validate
	textPolicy = bluemonday.StrictPolicy()
)

func init() {
	validate = validator.New()

	// Use JSON tag names for validation errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// ValidateStruct runs tag validation and returns a VALIDATION_FAILED error keyed by
// json field name.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return NewValidationError("invalid payload", nil)
	}

	details := make(map[string]any, len(validationErrors))
	for _, fieldError := range validationErrors {
		details[fieldError.Field()] = fieldErrorMessage(fieldError)
	}
	return NewValidationError("validation failed", details)
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, param)
	case "uuid":
		return fmt.Sprintf("%s must be a valid id", field)
	case "dive":
		return fmt.Sprintf("%s contains an invalid value", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// CleanText strips markup from user supplied free text and trims surrounding space.
func CleanText(s string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(s)))
}

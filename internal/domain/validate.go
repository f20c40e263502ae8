package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their wire name.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(fmt.Sprintf("failed to register notblank: %v", err))
	}
	return v
}

// validateStruct runs the struct tags of v and converts the failures into
// ValidationErrors, one per field, in declaration order.
func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate %T: %w", v, err)
	}

	var out ValidationErrors
	seen := make(map[string]bool, len(fieldErrs))
	for _, fe := range fieldErrs {
		field, _, elem := strings.Cut(fe.Field(), "[")
		if seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, ValidationError{Field: field, Message: message(field, elem, fe)})
	}
	return out
}

// message renders the user-facing text for a failed rule. elem is set when
// the failure is on one element of a slice.
func message(field string, elem bool, fe validator.FieldError) string {
	switch field {
	case "url":
		if fe.Tag() == "required" {
			return "URL is required."
		}
		return "Enter a valid URL starting with http:// or https://."
	case "title":
		if fe.Tag() == "max" {
			return fmt.Sprintf("Title must be %s characters or less.", fe.Param())
		}
		return "Title is required."
	case "description":
		return fmt.Sprintf("Description must be %s characters or less.", fe.Param())
	case "tags":
		switch {
		case !elem:
			return fmt.Sprintf("Use no more than %s tags.", fe.Param())
		case fe.Tag() == "max":
			return fmt.Sprintf("Each tag must be %s characters or less.", fe.Param())
		default:
			return "Tags cannot be empty."
		}
	case "name":
		if fe.Tag() == "max" {
			return fmt.Sprintf("Collection name must be %s characters or less.", fe.Param())
		}
		return "Collection name is required."
	case "color":
		return "Color is required."
	}
	return fmt.Sprintf("failed the %q rule.", fe.Tag())
}

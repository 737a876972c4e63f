package model

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	apperrors "devblog/internal/errors"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	return v
}

// Validate checks v's struct tags and returns a *errors.ValidationError
// describing every failed field.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := &apperrors.ValidationError{}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, apperrors.FieldError{
			Field:   fe.StructField(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Please enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "eqfield":
		return "Passwords do not match"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "storepivot/internal/errors"
)

var (
	structOnce sync.Once
	structV    *validator.Validate
)

// Validator returns the shared validator. Field names in errors are the
// json tag names, so messages match what callers wrote.
func Validator() *validator.Validate {
	structOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		structV = v
	})
	return structV
}

// Struct validates v and converts the first failure to an AppError. A
// failed oneof on a field named "fn" is an unsupported aggregation; every
// other failure is invalid input.
func Struct(v interface{}) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.NewAppError(apperrors.ErrTypeInvalidInput, "validation failed", err)
	}

	first := verrs[0]
	if first.Field() == "fn" && first.Tag() == "oneof" {
		return apperrors.NewUnsupportedAggregationError(fmt.Sprint(first.Value())).
			WithContext("field", first.Namespace())
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, FormatFieldError(fe))
	}
	return apperrors.NewAppError(apperrors.ErrTypeInvalidInput, strings.Join(messages, "; "), err).
		WithContext("field", first.Namespace())
}

// FormatFieldError formats validation error messages
func FormatFieldError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", field)
	case "excludesall":
		return fmt.Sprintf("%s must not contain any of %q", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

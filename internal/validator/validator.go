package validator

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	global   *validator.Validate
	idRegex  = regexp.MustCompile(`^[a-z0-9_\-]+$`)
	telRegex = regexp.MustCompile(`^\+?[0-9][0-9 ]{6,16}$`)
)

const (
	ErrInvalidFormat     = "Invalid format"
	ErrFieldRequired     = "Field is required"
	ErrFieldBelowMinLen  = "Field is below minimum length"
	ErrInvalidEmail      = "Invalid email address"
	ErrInvalidPhone      = "Invalid phone number"
	ErrDuplicateEntry    = "Duplicate entry"
	ErrUnknownValidation = "Unknown validation error"
)

func init() {
	SetValidator(New())
}

// New returns a validator with the project's custom rules registered.
// Field names in errors come from the json (or yaml) tag.
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, key := range []string{"json", "yaml"} {
			name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	_ = v.RegisterValidation("slug", validateSlug)
	_ = v.RegisterValidation("phone", validatePhone)
	return v
}

func SetValidator(v *validator.Validate) {
	global = v
}

func Validator() *validator.Validate {
	return global
}

func validateSlug(fl validator.FieldLevel) bool {
	return idRegex.MatchString(fl.Field().String())
}

func validatePhone(fl validator.FieldLevel) bool {
	return telRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

// Validate checks structure and returns the first problem as an error.
func Validate(ctx context.Context, structure any) error {
	return parseValidationErrors(Validator().StructCtx(ctx, structure))
}

// FieldErrors checks structure and returns one message per failing field,
// keyed by the field's tag name.
func FieldErrors(structure any) map[string]string {
	err := Validator().Struct(structure)
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return nil
	}
	out := make(map[string]string, len(vErrors))
	for _, ve := range vErrors {
		if _, seen := out[ve.Field()]; !seen {
			out[ve.Field()] = message(ve)
		}
	}
	return out
}

func parseValidationErrors(err error) error {
	if err == nil {
		return nil
	}
	var vErrors validator.ValidationErrors
	if !errors.As(err, &vErrors) || len(vErrors) == 0 {
		return err
	}
	ve := vErrors[0]
	return errors.New(message(ve) + ": " + ve.Namespace())
}

func message(ve validator.FieldError) string {
	switch ve.Tag() {
	case "slug":
		return ErrInvalidFormat
	case "required":
		return ErrFieldRequired
	case "min":
		return ErrFieldBelowMinLen
	case "email":
		return ErrInvalidEmail
	case "phone":
		return ErrInvalidPhone
	case "unique":
		return ErrDuplicateEntry
	default:
		return ErrUnknownValidation
	}
}

package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var headerNamePattern = regexp.MustCompile(`^[A-Za-z0-9!#$%&'*+.^_|~-]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report koanf keys instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("header_name", validateHeaderName); err != nil {
		panic(err)
	}
	return v
}

// Validate checks cfg and returns every problem found, each as a
// *ConfigError wrapping ErrInvalid.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	errs := make([]error, 0, len(validationErrors))
	for _, fe := range validationErrors {
		errs = append(errs, toConfigError(fe))
	}
	return errors.Join(errs...)
}

func toConfigError(fe validator.FieldError) *ConfigError {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(field)
	case "gt":
		return NewInvalidFieldError(field, fmt.Sprintf("must be greater than %s", fe.Param()), nil)
	case "gte":
		return NewInvalidFieldError(field, fmt.Sprintf("must be at least %s", fe.Param()), nil)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("unsupported value %q", fmt.Sprint(fe.Value())), strings.Fields(fe.Param()))
	case "header_name":
		return NewInvalidFieldError(field, fmt.Sprintf("%q is not a valid header name", fmt.Sprint(fe.Value())), nil)
	default:
		return NewInvalidFieldError(field, "failed validation", nil)
	}
}

func validateHeaderName(fl validator.FieldLevel) bool {
	return headerNamePattern.MatchString(fl.Field().String())
}

package types

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	// bcrypt only reads the first 72 bytes of a password.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})

	return v
}

// validateStruct runs the struct tags on req and reports the first failure
// in a client-facing form.
func validateStruct(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return errors.New(fe.Field() + " is required")
	case "email":
		return errors.New(fe.Field() + " is not a valid address")
	case "max":
		return errors.New(fe.Field() + " must be at most " + fe.Param() + " characters")
	case "maxbytes":
		return errors.New(fe.Field() + " must be at most " + fe.Param() + " bytes")
	case "username":
		return errors.New(fe.Field() + " must be 3-20 letters, digits or underscores")
	default:
		return errors.New(fe.Field() + " is invalid")
	}
}

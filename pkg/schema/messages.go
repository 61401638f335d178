package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/Rath300/research-collab/pkg/errors"
)

func addValidatorErrors(errs *apperrors.ValidationError, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("_", "%v", err)
		return
	}
	for _, fe := range verrs {
		errs.Add(fe.Field(), "%s", message(fe))
	}
}

func addVarErrors(errs *apperrors.ValidationError, name string, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add(name, "%v", err)
		return
	}
	for _, fe := range verrs {
		errs.Add(name, "%s", message(fe))
	}
}

func message(fe validator.FieldError) string {
	kind := fe.Kind()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.Join(strings.Fields(fe.Param()), ", "))
	case "max":
		return fmt.Sprintf("must be at most %s%s", fe.Param(), unit(kind))
	case "min":
		return fmt.Sprintf("must be at least %s%s", fe.Param(), unit(kind))
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	default:
		return fmt.Sprintf("failed the %s rule", fe.Tag())
	}
}

func unit(kind reflect.Kind) string {
	switch kind {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	default:
		return ""
	}
}

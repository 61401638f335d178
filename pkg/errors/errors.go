// Package errors holds the error kinds surfaced by the data-access layer and
// their translation to HTTP errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
)

// FieldError describes a single violated field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s %s", f.Field, f.Message)
}

// ValidationError is returned when input fails schema validation. It lists
// every violated field, not just the first.
type ValidationError struct {
	Entity string
	Fields []FieldError
}

func NewValidationError(entity string, fields ...FieldError) *ValidationError {
	return &ValidationError{Entity: entity, Fields: fields}
}

func (e *ValidationError) Error() string {
	parts := ectolinq.Map(e.Fields, func(f FieldError) string { return f.String() })
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// Add appends a field error.
func (e *ValidationError) Add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// HasField reports whether the named field failed validation.
func (e *ValidationError) HasField(field string) bool {
	return ectolinq.Contains(ectolinq.Map(e.Fields, func(f FieldError) string { return f.Field }), field)
}

// OrNil returns nil when no field failed.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// StoreError is a failure reported by the backing store.
type StoreError struct {
	Message string
	Status  int
	Code    string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("store error [%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("store error: %s", e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ConfigurationError is raised when required settings are absent. It is fatal
// for components that cannot run without them.
type ConfigurationError struct {
	Component string
	Missing   []string
}

func NewConfigurationError(component string, missing ...string) *ConfigurationError {
	return &ConfigurationError{Component: component, Missing: missing}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured: missing %s", e.Component, strings.Join(e.Missing, ", "))
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return stderrors.As(err, &target)
}

func IsStoreError(err error) bool {
	var target *StoreError
	return stderrors.As(err, &target)
}

func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return stderrors.As(err, &target)
}

// ToHTTPError converts any error into an HTTPError carrying the right status.
func ToHTTPError(err error) *httperror.HTTPError {
	if err == nil {
		return nil
	}

	var validationErr *ValidationError
	if stderrors.As(err, &validationErr) {
		return httperror.NewHTTPError(http.StatusBadRequest, validationErr.Error()).
			AddMetaValue("entity", validationErr.Entity).
			AddMetaValue("fields", validationErr.Fields)
	}

	var storeErr *StoreError
	if stderrors.As(err, &storeErr) {
		status := storeErr.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		httpErr := httperror.NewHTTPError(status, storeErr.Message)
		if storeErr.Code != "" {
			httpErr.AddMetaValue("code", storeErr.Code)
		}
		return httpErr
	}

	var configErr *ConfigurationError
	if stderrors.As(err, &configErr) {
		return httperror.NewHTTPError(http.StatusServiceUnavailable, configErr.Error())
	}

	var httpErr *httperror.HTTPError
	if stderrors.As(err, &httpErr) {
		return httpErr
	}

	return httperror.WrapError(http.StatusInternalServerError, err)
}

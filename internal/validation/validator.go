// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

// Package validation checks and normalizes incoming telemetry with
// go-playground/validator v10.
//
// A single validator instance is shared process-wide; it caches struct
// metadata and is safe for concurrent use. Failures are reported as a
// *RequestValidationError that converts to the API error envelope:
//
//	report, err := validation.ParseTelemetryReport(raw, time.Now())
//	if err != nil {
//	    apiErr := err.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	}
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidReport is matched by every *RequestValidationError via errors.Is.
var ErrInvalidReport = errors.New("invalid telemetry report")

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError describes one violated constraint on one field.
type ValidationError struct {
	field   string
	tag     string
	param   string
	value   interface{}
	message string
}

// Field returns the wire name of the offending field.
func (e *ValidationError) Field() string { return e.field }

// Tag returns the constraint that failed (required, gte, datetime, ...).
func (e *ValidationError) Tag() string { return e.tag }

// Param returns the constraint parameter, e.g. "90" for lte=90.
func (e *ValidationError) Param() string { return e.param }

// Value returns the rejected input value.
func (e *ValidationError) Value() interface{} { return e.value }

func (e *ValidationError) Error() string { return e.message }

// RequestValidationError is returned when a payload is rejected. Telemetry
// parsing stops at the first violation, so it normally holds one entry.
type RequestValidationError struct {
	errors []ValidationError
}

// Errors returns the individual violations.
func (ve *RequestValidationError) Errors() []ValidationError {
	return ve.errors
}

func (ve *RequestValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, 0, len(ve.errors))
	for i := range ve.errors {
		messages = append(messages, ve.errors[i].message)
	}
	return strings.Join(messages, "; ")
}

// Is lets callers test with errors.Is(err, ErrInvalidReport).
func (ve *RequestValidationError) Is(target error) bool {
	return target == ErrInvalidReport
}

// APIError mirrors models.APIError without importing it.
type APIError struct {
	Code    string
	Message string
	Details map[string]interface{}
}

// ToAPIError converts the violation into the VALIDATION_ERROR envelope shape.
func (ve *RequestValidationError) ToAPIError() *APIError {
	if len(ve.errors) == 0 {
		return &APIError{Code: "VALIDATION_ERROR", Message: "Validation failed"}
	}
	first := ve.errors[0]
	details := map[string]interface{}{
		"field": first.field,
		"tag":   first.tag,
	}
	if first.param != "" {
		details["param"] = first.param
	}
	return &APIError{
		Code:    "VALIDATION_ERROR",
		Message: ve.Error(),
		Details: details,
	}
}

func newFieldError(field, tag, param string, value interface{}, message string) *RequestValidationError {
	return &RequestValidationError{errors: []ValidationError{{
		field:   field,
		tag:     tag,
		param:   param,
		value:   value,
		message: message,
	}}}
}

// GetValidator returns the shared validator, registering the custom
// "finite" tag on first use.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// NaN and ±Inf compare false against every bound, so they need their own rule.
		_ = validate.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
			switch fl.Field().Kind() {
			case reflect.Float32, reflect.Float64:
				f := fl.Field().Float()
				return !math.IsNaN(f) && !math.IsInf(f, 0)
			default:
				return true
			}
		})
	})
	return validate
}

// checkVar validates a single value against tag and names the first failure
// after field.
func checkVar(field string, value interface{}, tag string) *RequestValidationError {
	err := GetValidator().Var(value, tag)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return newFieldError(field, "unknown", "", value, err.Error())
	}
	fe := fieldErrs[0]
	return newFieldError(field, fe.Tag(), fe.Param(), value,
		translate(field, fe.Tag(), fe.Param(), fe.Kind() == reflect.String))
}

var messageTemplates = map[string]string{
	"required": "%s is required",
	"finite":   "%s must be a finite number",
	"number":   "%s must be a number",
	"string":   "%s must be a string",
	"datetime": "%s must be a valid ISO-8601 date",
	"allowed":  "%s is not allowed",
}

var messageWithParam = map[string]string{
	"gte": "%s must be greater than or equal to %s",
	"lte": "%s must be less than or equal to %s",
	"gt":  "%s must be greater than %s",
	"lt":  "%s must be less than %s",
}

func translate(field, tag, param string, isString bool) string {
	if tmpl, ok := messageTemplates[tag]; ok {
		return fmt.Sprintf(tmpl, field)
	}
	if tmpl, ok := messageWithParam[tag]; ok {
		return fmt.Sprintf(tmpl, field, param)
	}
	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

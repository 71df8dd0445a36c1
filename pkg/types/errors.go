package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across layers.
var (
	ErrSchemaNotFound = errors.New("schema not found")
	ErrColumnNotFound = errors.New("column not in table")
	ErrFieldNotFound  = errors.New("field not found")
	ErrTypeUnknown    = errors.New("unknown column type")
	ErrNoData         = errors.New("no data saved")
	ErrNotAuthorized  = errors.New("not authorized")
	ErrBadTableName   = errors.New("invalid schema table name")
	ErrMultiLookup    = errors.New("lookup may not reference a multi-valued column")
)

// ConfigError is raised while validating a search configuration. It never
// reaches query execution; the affected aggregation aborts while sibling
// aggregations on the same page continue.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...any) *ConfigError {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// ValidationError is a per-field validation failure. Code is a stable
// reason code usable as a localization key; Args parameterize the message
// with the offending value or limit.
type ValidationError struct {
	Code string
	Args []any
}

// Validation message catalog keyed by reason code. Args are applied in
// order; unknown codes fall back to the bare code.
var validationMessages = map[string]string{
	"decimal":      "decimal number needed, got %q",
	"decimal min":  "value must be %v or greater",
	"decimal max":  "value must be %v or less",
	"int":          "whole number needed, got %q",
	"date":         "invalid date %q, expected YYYY-MM-DD",
	"datetime":     "invalid datetime %q, expected YYYY-MM-DD HH:MM",
	"dropdown":     "%q is not one of the allowed values",
	"mail":         "%q is not a valid email address",
	"url":          "%q is not a valid URL",
	"user":         "%q is not an existing user",
	"page":         "%q is not a valid page id",
	"media":        "%q is not a valid media id",
	"lookup":       "%q is not a valid reference",
	"lookup gone":  "referenced row %q no longer exists",
	"generic":      "invalid value %q",
}

func (e *ValidationError) Error() string {
	format, ok := validationMessages[e.Code]
	if !ok {
		return e.Code
	}
	return fmt.Sprintf(format, e.Args...)
}

// NewValidationError builds a ValidationError for the given reason code.
func NewValidationError(code string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Args: args}
}

// FieldError pairs a ValidationError with the label of the failing field.
// Save operations collect one FieldError per failing field rather than
// stopping at the first.
type FieldError struct {
	Label string
	Err   error
}

func (e *FieldError) Error() string { return e.Label + ": " + e.Err.Error() }

func (e *FieldError) Unwrap() error { return e.Err }

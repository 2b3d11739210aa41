package errors

import (
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeInvalidInput           ErrorType = "INVALID_INPUT"
	ErrTypeUnsupportedAggregation ErrorType = "UNSUPPORTED_AGGREGATION"
	ErrTypeEmptyExport            ErrorType = "EMPTY_EXPORT"
	ErrTypeExportInProgress       ErrorType = "EXPORT_IN_PROGRESS"
	ErrTypeRender                 ErrorType = "RENDER"
	ErrTypeParsing                ErrorType = "PARSING"
	ErrTypeStorage                ErrorType = "STORAGE"
	ErrTypeConfig                 ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError of the same type, so any
// AppError matches the sentinel of its type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Sentinels for errors.Is matching. Do not mutate.
var (
	ErrInvalidInput           = &AppError{Type: ErrTypeInvalidInput, Message: "invalid input"}
	ErrUnsupportedAggregation = &AppError{Type: ErrTypeUnsupportedAggregation, Message: "unsupported aggregation"}
	ErrEmptyExport            = &AppError{Type: ErrTypeEmptyExport, Message: "nothing to export"}
	ErrExportInProgress       = &AppError{Type: ErrTypeExportInProgress, Message: "export already in progress"}
	ErrRender                 = &AppError{Type: ErrTypeRender, Message: "render failed"}
	ErrParsing                = &AppError{Type: ErrTypeParsing, Message: "parsing failed"}
	ErrStorage                = &AppError{Type: ErrTypeStorage, Message: "storage failed"}
	ErrConfig                 = &AppError{Type: ErrTypeConfig, Message: "invalid configuration"}
)

// Helper functions for common error types

// NewInvalidInputError creates an error for malformed records, group keys or specs
func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrTypeInvalidInput, message, nil)
}

// NewUnsupportedAggregationError creates an error for an unknown aggregation function
func NewUnsupportedAggregationError(fn string) *AppError {
	return NewAppError(ErrTypeUnsupportedAggregation,
		fmt.Sprintf("unsupported aggregation function %q", fn), nil).
		WithContext("function", fn)
}

// NewEmptyExportError creates an error for an export with zero detail rows
func NewEmptyExportError(format string) *AppError {
	return NewAppError(ErrTypeEmptyExport, "no rows to export", nil).
		WithContext("format", format)
}

// NewExportInProgressError creates an error for an overlapping surface export
func NewExportInProgressError(format string) *AppError {
	return NewAppError(ErrTypeExportInProgress, "another export is using the surface", nil).
		WithContext("format", format)
}

// NewRenderError creates a rasterization or rendering error
func NewRenderError(message string, cause error) *AppError {
	return NewAppError(ErrTypeRender, message, cause)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// Package errors provides standardized error types for the SQL assistant.
package errors

import (
	"errors"
	"fmt"
)

// Error codes shared across the pipeline.
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeAlreadyExists    = "ALREADY_EXISTS"
	CodeQueryFailed      = "QUERY_FAILED"
	CodeConnectionFailed = "CONNECTION_FAILED"
	CodeCatalogFailed    = "CATALOG_FAILED"
	CodeOracleFailed     = "ORACLE_FAILED"
	CodeOracleParse      = "ORACLE_PARSE_FAILED"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeGenerationFailed = "GENERATION_FAILED"
	CodeInternal         = "INTERNAL_ERROR"
	CodeUnavailable      = "UNAVAILABLE"
	CodeDeadlineExceeded = "DEADLINE_EXCEEDED"
	CodeCanceled         = "CANCELED"
	CodePermissionDenied = "PERMISSION_DENIED"
)

// PipelineError represents an assistant error with code, message, and
// optional details.
type PipelineError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by code.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails attaches structured details to the error.
func (e *PipelineError) WithDetails(details map[string]interface{}) *PipelineError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *PipelineError) WithDetail(key string, value interface{}) *PipelineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Common errors
var (
	ErrEmptyRequest    = &PipelineError{Code: CodeInvalidRequest, Message: "request cannot be empty"}
	ErrSessionNotFound = &PipelineError{Code: CodeNotFound, Message: "session not found"}
	ErrTableNotFound   = &PipelineError{Code: CodeNotFound, Message: "table not found"}
	ErrOracleTimeout   = &PipelineError{Code: CodeDeadlineExceeded, Message: "oracle call timed out"}
	ErrOracleMalformed = &PipelineError{Code: CodeOracleParse, Message: "oracle returned unparseable output"}
	ErrPoolClosed      = &PipelineError{Code: CodeUnavailable, Message: "connection pool is closed"}
)

// New creates a new PipelineError with the given code and message.
func New(code, message string) *PipelineError {
	return &PipelineError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with a PipelineError.
func Wrap(err error, code, message string) *PipelineError {
	if err == nil {
		return nil
	}
	return &PipelineError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code, format string, args ...interface{}) *PipelineError {
	if err == nil {
		return nil
	}
	return &PipelineError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == CodeNotFound
	}
	return false
}

// IsOracleFailure checks if an error came from the oracle transport or parse.
func IsOracleFailure(err error) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == CodeOracleFailed || pe.Code == CodeOracleParse
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}

// GetMessage extracts the error message from an error.
func GetMessage(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Message
	}
	return err.Error()
}

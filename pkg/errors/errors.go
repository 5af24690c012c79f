// Package errors provides the categorized error types used across the
// reconciliation engine. Every error carries a category, a machine-readable
// code, and enough context (offending transaction, pipeline stage) to
// support replay and debugging, per the isolate-and-report design: nothing
// in the engine is fatal to the overall batch.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category groups errors by the subsystem that raised them
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryParse      Category = "parse"
	CategoryMatching   Category = "matching"
	CategoryAnomaly    Category = "anomaly"
	CategoryFees       Category = "fees"
	CategoryBatch      Category = "batch"
	CategoryStorage    Category = "storage"
	CategoryInternal   Category = "internal"
)

// Code identifies the specific failure within a category
type Code string

const (
	// Validation codes
	CodeMissingField  Code = "missing_field"
	CodeInvalidAmount Code = "invalid_amount"
	CodeInvalidDate   Code = "invalid_date"
	CodeInvalidConfig Code = "invalid_config"
	CodeInvalidRecord Code = "invalid_record"

	// Parse codes
	CodeInvalidFormat Code = "invalid_format"
	CodeMissingColumn Code = "missing_column"
	CodeInvalidRow    Code = "invalid_row"

	// Processing codes
	CodeMatchingFailed  Code = "matching_failed"
	CodeProcessingError Code = "processing_error"
	CodeAccountFailed   Code = "account_failed"

	// Storage codes
	CodeSnapshotWrite Code = "snapshot_write"
	CodeSnapshotRead  Code = "snapshot_read"

	// Internal codes
	CodeUnexpectedError Code = "unexpected_error"
)

// EngineError is the base error type for all engine errors
type EngineError struct {
	Category   Category               `json:"category"`
	Code       Code                   `json:"code"`
	Message    string                 `json:"message"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Cause      error                  `json:"-"`
	StackTrace errors.StackTrace      `json:"-"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *EngineError) WithContext(key string, value interface{}) *EngineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithTransaction records the offending transaction ID and stage, the
// minimum context required for replay
func (e *EngineError) WithTransaction(id, stage string) *EngineError {
	return e.WithContext("transaction_id", id).WithContext("stage", stage)
}

// GetExitCode returns an appropriate process exit code for the error
func (e *EngineError) GetExitCode() int {
	switch e.Category {
	case CategoryValidation, CategoryParse:
		return 2
	case CategoryMatching, CategoryAnomaly, CategoryFees:
		return 3
	case CategoryBatch:
		return 4
	case CategoryStorage:
		return 5
	default:
		return 1
	}
}

// stackTracer is the interface pkg/errors exposes for stack extraction
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates a new EngineError with a captured stack trace
func New(category Category, code Code, message string) *EngineError {
	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with engine error context
func Wrap(err error, category Category, code Code, message string) *EngineError {
	if err == nil {
		return nil
	}

	return &EngineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// ValidationError creates an input-validation error for a field/value pair
func ValidationError(code Code, field string, value interface{}, err error) *EngineError {
	message := fmt.Sprintf("validation failed for field '%s': %v", field, value)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	} else {
		result = New(CategoryValidation, code, message)
	}

	return result.
		WithContext("field", field).
		WithContext("value", value)
}

// ParseError creates a row-level parse error
func ParseError(code Code, file string, line int, err error) *EngineError {
	message := fmt.Sprintf("parse error in %s at line %d", file, line)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithContext("file", file).
		WithContext("line", line)
}

// MatchingError creates a matching-stage error
func MatchingError(code Code, operation string, err error) *EngineError {
	message := fmt.Sprintf("matching failed during %s", operation)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryMatching, code, message)
	} else {
		result = New(CategoryMatching, code, message)
	}

	return result.WithContext("operation", operation)
}

// BatchError creates a per-account batch error
func BatchError(accountID string, err error) *EngineError {
	message := fmt.Sprintf("reconciliation failed for account %s", accountID)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryBatch, CodeAccountFailed, message)
	} else {
		result = New(CategoryBatch, CodeAccountFailed, message)
	}

	return result.WithContext("account_id", accountID)
}

// StorageError creates a snapshot-store error
func StorageError(code Code, operation string, err error) *EngineError {
	message := fmt.Sprintf("storage failure during %s", operation)

	var result *EngineError
	if err != nil {
		result = Wrap(err, CategoryStorage, code, message)
	} else {
		result = New(CategoryStorage, code, message)
	}

	return result.WithContext("operation", operation)
}

// IsEngineError checks if an error is an EngineError
func IsEngineError(err error) bool {
	_, ok := err.(*EngineError)
	return ok
}

// AsEngineError extracts an EngineError from an error chain
func AsEngineError(err error) (*EngineError, bool) {
	var engineErr *EngineError
	if errors.As(err, &engineErr) {
		return engineErr, true
	}
	return nil, false
}

// Summary aggregates multiple errors, typically per-item failures from one run
type Summary struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"by_category"`
	Errors     []*EngineError   `json:"errors"`
}

// NewSummary creates a summary over the given errors
func NewSummary(errs []*EngineError) *Summary {
	summary := &Summary{
		Total:      len(errs),
		ByCategory: make(map[Category]int),
		Errors:     errs,
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
	}

	return summary
}

// Error returns a formatted message for the summary
func (s *Summary) Error() string {
	if s.Total == 0 {
		return "no errors"
	}

	if s.Total == 1 {
		return s.Errors[0].Error()
	}

	var categories []string
	for category, count := range s.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", s.Total, strings.Join(categories, ", "))
}

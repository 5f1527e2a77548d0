package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline error taxonomy. Sentinels are matched with errors.Is; wrapping
// callers attach file/path context with fmt.Errorf("...: %w", ...).
var (
	// ErrUnsupportedFileType marks extensions outside the supported set.
	// Files failing with it count as skipped, not as errors.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrExtractionFailure marks files that yielded no usable text and had
	// no applicable fallback.
	ErrExtractionFailure = errors.New("extraction failure")

	// ErrSubOperationTimeout marks a bounded sub-step that exceeded its
	// deadline. Always recovered locally with a default value; never
	// surfaced past the content extractor.
	ErrSubOperationTimeout = errors.New("sub-operation timeout")

	// ErrExternalExtraction marks a failed external extraction call.
	// Always recovered by falling back to the deterministic extractor.
	ErrExternalExtraction = errors.New("external extraction failure")

	// ErrPersistence marks a store write failure; counts as an error for
	// the affected file, the batch continues.
	ErrPersistence = errors.New("persistence failure")

	ErrInvalidInput = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode represents a specific type of error in the domain
type ErrorCode string

const (
	// Common errors
	ErrInternal     ErrorCode = "INTERNAL_ERROR"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrConfig       ErrorCode = "CONFIGURATION_ERROR"

	// Job pipeline errors
	ErrInvalidJob       ErrorCode = "INVALID_JOB"
	ErrRetrievalFailed  ErrorCode = "RETRIEVAL_FAILED"
	ErrExtractionFailed ErrorCode = "EXTRACTION_FAILED"
	ErrGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrSubmissionFailed ErrorCode = "SUBMISSION_FAILED"
	ErrLLMServiceError  ErrorCode = "LLM_SERVICE_ERROR"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Error(),
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions for common errors
func NewNotFoundError(message string) *DomainError {
	return NewError(ErrNotFound, message, nil)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(ErrInvalidInput, message, nil)
}

func NewInternalError(message string, err error) *DomainError {
	return NewError(ErrInternal, message, err)
}

func NewConfigError(message string) *DomainError {
	return NewError(ErrConfig, message, nil)
}

func NewInvalidJobError(err error) *DomainError {
	return NewError(ErrInvalidJob, "invalid job payload", err)
}

func NewRetrievalError(err error) *DomainError {
	return NewError(ErrRetrievalFailed, "retrieval failed", err)
}

func NewExtractionError(err error) *DomainError {
	return NewError(ErrExtractionFailed, "extraction failed", err)
}

func NewGenerationError(err error) *DomainError {
	return NewError(ErrGenerationFailed, "generation failed", err)
}

func NewSubmissionError(err error) *DomainError {
	return NewError(ErrSubmissionFailed, "result submission failed", err)
}

func NewLLMServiceError(err error) *DomainError {
	return NewError(ErrLLMServiceError, "failed to process with LLM service", err)
}

// CodeOf returns the ErrorCode carried by err, or ErrInternal when err is
// not a DomainError.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrInternal
}

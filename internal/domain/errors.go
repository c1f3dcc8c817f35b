package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeExtraction    = "EXTRACTION_ERROR"
	ErrCodeGeneration    = "GENERATION_ERROR"
)

// Validation errors
var (
	ErrEmptyQuestion     = NewDomainError(ErrCodeValidation, "question is required")
	ErrNoContent         = NewDomainError(ErrCodeValidation, "no text could be extracted from the documents")
	ErrUnsupportedFormat = NewDomainError(ErrCodeValidation, "unsupported export format")
	ErrEmptyText         = NewDomainError(ErrCodeValidation, "text is required")
)

// Not found errors
var (
	ErrUnknownSession = NewDomainError(ErrCodeNotFound, "unknown session id")
	ErrUserNotFound   = NewDomainError(ErrCodeNotFound, "user not found")
)

// Registry invariant violations
var (
	ErrDuplicateSession = NewDomainError(ErrCodeAlreadyExists, "session already registered")
)

// Authorization errors
var (
	ErrInvalidToken = NewDomainError(ErrCodeUnauthorized, "invalid or expired token")
)

// NewExtractionError reports a failure to parse one uploaded document.
// Extraction failures are recoverable per document; the rest of the
// batch continues.
func NewExtractionError(source string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeExtraction, fmt.Sprintf("failed to extract text from %q", source), err)
}

// NewGenerationError wraps a failed generation call. The request aborts
// and the turn is not recorded, but the process stays up.
func NewGenerationError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeGeneration, "failed to generate answer", err)
}

package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a DomainError.
type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeForbidden        ErrorCode = "FORBIDDEN"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeValidation       ErrorCode = "VALIDATION_ERROR"
)

// DomainError is a business-rule rejection. It is never retried.
type DomainError struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

// Is reports whether target is a DomainError with the same code, so callers
// can write errors.Is(err, domain.ErrForbidden).
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound         = &DomainError{Code: CodeNotFound}
	ErrForbidden        = &DomainError{Code: CodeForbidden}
	ErrInvalidOperation = &DomainError{Code: CodeInvalidOperation}
	ErrConflict         = &DomainError{Code: CodeConflict}
	ErrValidation       = &DomainError{Code: CodeValidation}
)

// NewNotFoundError returns a NOT_FOUND error for the given entity and key.
func NewNotFoundError(entity, key string) *DomainError {
	return &DomainError{Code: CodeNotFound, Message: fmt.Sprintf("%s %s not found", entity, key)}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *DomainError {
	return &DomainError{Code: CodeForbidden, Message: msg}
}

// NewInvalidOperationError returns an INVALID_OPERATION error.
func NewInvalidOperationError(msg string) *DomainError {
	return &DomainError{Code: CodeInvalidOperation, Message: msg}
}

// NewConflictError returns a CONFLICT error.
func NewConflictError(msg string) *DomainError {
	return &DomainError{Code: CodeConflict, Message: msg}
}

// NewValidationError returns a VALIDATION_ERROR error.
func NewValidationError(msg string) *DomainError {
	return &DomainError{Code: CodeValidation, Message: msg}
}

// CodeOf extracts the code of a DomainError anywhere in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code, true
	}
	return "", false
}

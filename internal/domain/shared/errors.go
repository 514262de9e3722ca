package shared

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound         = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAccessDenied     = NewDomainError("ACCESS_DENIED", "Not allowed to perform this action")
	ErrAuthFailed       = NewDomainError("AUTH_ERROR", "Authentication failed")
	ErrInvalidState     = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrAlreadyConverted = NewDomainError("ALREADY_CONVERTED", "Quote has already been converted")
	ErrNoActiveCompany  = NewDomainError("NO_ACTIVE_COMPANY", "No company is selected")
)

// NewValidationError creates a validation error for a missing or invalid field.
// Validation errors are recoverable: the caller marks the field and blocks save.
func NewValidationError(field, message string) *DomainError {
	return &DomainError{
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("%s: %s", field, message),
	}
}

// IsValidationError reports whether err is a validation error
func IsValidationError(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Code == "VALIDATION_ERROR"
}

// StoreError wraps a document store collaborator failure. Local mirrors are
// unaffected by a StoreError: writes never optimistically update local state.
type StoreError struct {
	Op  string
	Err error
}

// Error implements the error interface
func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying collaborator error
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err as a store failure for the given operation
func NewStoreError(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// IsStoreError reports whether err is a store collaborator failure
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

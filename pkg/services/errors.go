// Package services provides standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest       = errors.New("invalid request")
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrStagesRequired       = errors.New("workflow version must have at least one stage")
	ErrTitleRequired        = errors.New("application title is required")
	ErrNoActiveVersion      = errors.New("workflow has no active version")

	// Business Logic Conflicts (409 Conflict).
	ErrAlreadySubmitted = errors.New("application is already submitted")
	ErrAlreadyCompleted = errors.New("application is already completed")
	ErrNotSubmitted     = errors.New("application has not been submitted")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrStagesRequired) ||
		errors.Is(err, ErrTitleRequired) ||
		errors.Is(err, ErrNoActiveVersion)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrAlreadySubmitted) ||
		errors.Is(err, ErrAlreadyCompleted) ||
		errors.Is(err, ErrNotSubmitted)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewConflictError creates a new conflict error with context.
func NewConflictError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

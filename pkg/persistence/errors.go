// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrVersionNotFound indicates a workflow version was not found by the given identifier.
	ErrVersionNotFound = errors.New("workflow version not found")

	// ErrApplicationNotFound indicates an application was not found by the given identifier.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrAssignmentNotFound indicates an assignment was not found by the given identifier.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrApproverNotFound indicates an approver was not found by the given identifier.
	ErrApproverNotFound = errors.New("approver not found")

	// ErrNotDraft indicates a destructive operation targeted a workflow
	// that has left draft status.
	ErrNotDraft = errors.New("workflow is not a draft")

	// ErrActivityImmutable indicates an attempt to modify or delete an
	// already persisted activity record.
	ErrActivityImmutable = errors.New("activity records are append-only")
)

// EntityError wraps persistence errors with operation context.
type EntityError struct {
	Op     string // Operation being performed (e.g., "WorkflowByID", "ApplyTransition")
	Entity string // Entity kind if applicable
	ID     int64  // Entity ID if applicable
	Err    error  // Underlying error
}

func (e *EntityError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s operation failed for %s %d: %v", e.Op, e.Entity, e.ID, e.Err)
	}

	return fmt.Sprintf("%s operation failed: %v", e.Op, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewEntityError creates a new entity error with context.
func NewEntityError(op, entity string, id int64, err error) *EntityError {
	return &EntityError{
		Op:     op,
		Entity: entity,
		ID:     id,
		Err:    err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsVersionNotFound checks if an error indicates a workflow version was not found.
func IsVersionNotFound(err error) bool {
	return errors.Is(err, ErrVersionNotFound)
}

// IsApplicationNotFound checks if an error indicates an application was not found.
func IsApplicationNotFound(err error) bool {
	return errors.Is(err, ErrApplicationNotFound)
}

// IsAssignmentNotFound checks if an error indicates an assignment was not found.
func IsAssignmentNotFound(err error) bool {
	return errors.Is(err, ErrAssignmentNotFound)
}

// IsApproverNotFound checks if an error indicates an approver was not found.
func IsApproverNotFound(err error) bool {
	return errors.Is(err, ErrApproverNotFound)
}

// IsNotDraft checks if an error indicates a non-draft workflow blocked a
// destructive operation.
func IsNotDraft(err error) bool {
	return errors.Is(err, ErrNotDraft)
}

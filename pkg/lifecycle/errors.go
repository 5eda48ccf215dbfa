// Package lifecycle provides standardized error types for entity lifecycle operations.
package lifecycle

import (
	"errors"
	"fmt"
)

// Standard lifecycle error types that all status-bearing entities use.
var (
	// ErrInvalidTransition indicates an illegal status lifecycle move,
	// such as activating an archived entity. A programming or
	// configuration error, never a user mistake.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrCannotActivate indicates the entity's activation predicate vetoed
	// the transition.
	ErrCannotActivate = errors.New("cannot activate")

	// ErrCannotArchive indicates the entity's archive predicate vetoed the
	// transition.
	ErrCannotArchive = errors.New("cannot archive")

	// ErrCannotDelete indicates a hard delete was attempted on a non-draft
	// entity without force.
	ErrCannotDelete = errors.New("cannot delete non-draft object")

	// ErrHasActiveDependencies indicates deactivation is blocked by live
	// dependents still referencing the entity.
	ErrHasActiveDependencies = errors.New("cannot deactivate object with active dependencies")
)

// StatusError wraps lifecycle errors with the entity and operation involved.
type StatusError struct {
	Op     string // Operation being performed ("Activate", "Archive", ...)
	Entity string // Entity kind, e.g. "workflow_version"
	ID     int64  // Entity ID if known
	Err    error  // Underlying error
	Detail string // Additional context, e.g. which dependent kind blocked
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s failed for %s %d: %s (%v)", e.Op, e.Entity, e.ID, e.Detail, e.Err)
	}

	return fmt.Sprintf("%s failed for %s %d: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for lifecycle errors.
func (e *StatusError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsInvalidTransition checks if an error indicates an illegal status move.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}

// IsCannotActivate checks if an error indicates a vetoed activation.
func IsCannotActivate(err error) bool {
	return errors.Is(err, ErrCannotActivate)
}

// IsCannotArchive checks if an error indicates a vetoed archive.
func IsCannotArchive(err error) bool {
	return errors.Is(err, ErrCannotArchive)
}

// IsHasActiveDependencies checks if an error indicates blocked deactivation.
func IsHasActiveDependencies(err error) bool {
	return errors.Is(err, ErrHasActiveDependencies)
}

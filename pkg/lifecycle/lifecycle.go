package lifecycle

import (
	"github.com/lumenlms/approvalflow/pkg/models"
)

// StatusBearer is implemented by workflow-defining entities carrying the
// draft/active/archived lifecycle flag.
type StatusBearer interface {
	GetStatus() models.Status
	SetStatus(models.Status)
}

// CanBeActivated is an optional predicate a StatusBearer may implement to
// veto activation. Absence means activation is always allowed from draft.
type CanBeActivated interface {
	CanBeActivated() bool
}

// CanBeArchived is an optional predicate a StatusBearer may implement to
// veto archiving. Absence means archiving is always allowed.
type CanBeArchived interface {
	CanBeArchived() bool
}

// Activate moves a draft entity to active.
//
// The state machine is linear: DRAFT → ACTIVE → ARCHIVED. Activating an
// archived entity is intentionally unsupported and fails with
// ErrInvalidTransition. Activating an already-active entity is a no-op.
func Activate(entity StatusBearer, kind string, id int64) error {
	switch entity.GetStatus() {
	case models.StatusActive:
		return nil
	case models.StatusArchived:
		return &StatusError{
			Op:     "Activate",
			Entity: kind,
			ID:     id,
			Err:    ErrInvalidTransition,
			Detail: "activating archived objects is not implemented",
		}
	}

	if p, ok := entity.(CanBeActivated); ok && !p.CanBeActivated() {
		return &StatusError{Op: "Activate", Entity: kind, ID: id, Err: ErrCannotActivate}
	}

	entity.SetStatus(models.StatusActive)

	return nil
}

// Archive moves an entity to archived from any state. Idempotent when the
// entity is already archived.
func Archive(entity StatusBearer, kind string, id int64) error {
	if entity.GetStatus() == models.StatusArchived {
		return nil
	}

	if p, ok := entity.(CanBeArchived); ok && !p.CanBeArchived() {
		return &StatusError{Op: "Archive", Entity: kind, ID: id, Err: ErrCannotArchive}
	}

	entity.SetStatus(models.StatusArchived)

	return nil
}

// EnsureDeletable reports whether the entity may be hard-deleted. Only draft
// entities are deletable; force bypasses the check. Do not use force outside
// of fixture teardown.
func EnsureDeletable(entity StatusBearer, kind string, id int64, force bool) error {
	if force {
		return nil
	}

	if entity.GetStatus() != models.StatusDraft {
		return &StatusError{Op: "Delete", Entity: kind, ID: id, Err: ErrCannotDelete}
	}

	return nil
}

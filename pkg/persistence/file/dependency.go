package file

import (
	"context"
	"fmt"

	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/lumenlms/approvalflow/pkg/persistence"
)

// Deactivate holds the store mutex for the whole of fn, so the checklist
// queries and the flag-clearing save observe and mutate one snapshot.
func (fp *Persistence) Deactivate(_ context.Context, fn func(tx persistence.DeactivationTx) error) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fn(&deactivationTx{fp: fp})
}

// deactivationTx dispatches to the lock-free internals; the enclosing
// Deactivate call already holds the mutex.
type deactivationTx struct {
	fp *Persistence
}

func (t *deactivationTx) HasInFlightApplications(_ context.Context, fkField string, id int64) (bool, error) {
	return t.fp.hasInFlightApplications(fkField, id)
}

func (t *deactivationTx) HasActiveDependents(_ context.Context, kind, fkField string, id int64) (bool, error) {
	return t.fp.hasActiveDependents(kind, fkField, id)
}

func (t *deactivationTx) HasNonDraftDependents(_ context.Context, kind, fkField string, id int64) (bool, error) {
	return t.fp.hasNonDraftDependents(kind, fkField, id)
}

func (t *deactivationTx) SaveVersion(_ context.Context, version *models.WorkflowVersion) error {
	return t.fp.saveVersion(version)
}

func (t *deactivationTx) SaveApprover(_ context.Context, approver *models.Approver) error {
	return t.fp.saveApprover(approver)
}

// HasInFlightApplications reports whether any application still in flight
// references the given entity through the named foreign-key field.
func (fp *Persistence) HasInFlightApplications(_ context.Context, fkField string, id int64) (bool, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.hasInFlightApplications(fkField, id)
}

func (fp *Persistence) hasInFlightApplications(fkField string, id int64) (bool, error) {
	found := false

	err := eachDoc(fp, applicationsDir, func(app *models.Application) error {
		value, ok := applicationFK(app, fkField)
		if ok && value == id && app.InFlight() {
			found = true
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return found, nil
}

// HasActiveDependents reports whether any active row of the given kind
// references the entity through the named foreign-key field.
func (fp *Persistence) HasActiveDependents(_ context.Context, kind, fkField string, id int64) (bool, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.hasActiveDependents(kind, fkField, id)
}

func (fp *Persistence) hasActiveDependents(kind, fkField string, id int64) (bool, error) {
	switch kind {
	case "approver":
		found := false

		err := eachDoc(fp, approversDir, func(a *models.Approver) error {
			var value int64

			switch fkField {
			case "approval_level_id":
				value = a.ApprovalLevelID
			case "assignment_id":
				value = a.AssignmentID
			default:
				return fmt.Errorf("unsupported approver foreign key %q", fkField)
			}

			if value == id && a.Active {
				found = true
			}

			return nil
		})
		if err != nil {
			return false, err
		}

		return found, nil

	case "workflow_stage":
		return fp.anyStage(func(stage *models.WorkflowStage) bool {
			return fkField == "workflow_version_id" && stage.WorkflowVersionID == id && stage.Active
		})

	case "approval_level":
		return fp.anyLevel(func(stage *models.WorkflowStage, level *models.ApprovalLevel) bool {
			return fkField == "workflow_stage_id" && stage.ID == id && level.Active
		})
	}

	return false, fmt.Errorf("unsupported dependent kind %q", kind)
}

// HasNonDraftDependents reports whether any status-bearing row of the given
// kind referencing the entity has left draft status.
func (fp *Persistence) HasNonDraftDependents(_ context.Context, kind, fkField string, id int64) (bool, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.hasNonDraftDependents(kind, fkField, id)
}

func (fp *Persistence) hasNonDraftDependents(kind, fkField string, id int64) (bool, error) {
	switch kind {
	case "assignment":
		found := false

		err := eachDoc(fp, assignmentsDir, func(a *models.Assignment) error {
			if fkField == "workflow_id" && a.WorkflowID == id && a.Status != models.StatusDraft {
				found = true
			}

			return nil
		})
		if err != nil {
			return false, err
		}

		return found, nil

	case "workflow_version":
		found := false

		err := eachDoc(fp, workflowsDir, func(w *models.Workflow) error {
			for _, version := range w.Versions {
				if fkField == "workflow_id" && version.WorkflowID == id && version.Status != models.StatusDraft {
					found = true
				}
			}

			return nil
		})
		if err != nil {
			return false, err
		}

		return found, nil
	}

	return false, fmt.Errorf("unsupported dependent kind %q", kind)
}

func (fp *Persistence) anyStage(match func(*models.WorkflowStage) bool) (bool, error) {
	found := false

	err := eachDoc(fp, workflowsDir, func(w *models.Workflow) error {
		for _, version := range w.Versions {
			for _, stage := range version.Stages {
				if match(stage) {
					found = true
				}
			}
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return found, nil
}

func (fp *Persistence) anyLevel(match func(*models.WorkflowStage, *models.ApprovalLevel) bool) (bool, error) {
	found := false

	err := eachDoc(fp, workflowsDir, func(w *models.Workflow) error {
		for _, version := range w.Versions {
			for _, stage := range version.Stages {
				for _, level := range stage.ApprovalLevels {
					if match(stage, level) {
						found = true
					}
				}
			}
		}

		return nil
	})
	if err != nil {
		return false, err
	}

	return found, nil
}

package file

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/lumenlms/approvalflow/pkg/persistence"
)

// Workflows returns all workflows sorted by creation time, newest first.
// Versions are embedded in the workflow document, so each result is complete.
func (fp *Persistence) Workflows(_ context.Context) ([]*models.Workflow, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	workflows := make([]*models.Workflow, 0)

	err := eachDoc(fp, workflowsDir, func(w *models.Workflow) error {
		workflows = append(workflows, w)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})

	return workflows, nil
}

// WorkflowByID retrieves a workflow by its ID from the file system.
func (fp *Persistence) WorkflowByID(_ context.Context, id int64) (*models.Workflow, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.workflowByID(id)
}

func (fp *Persistence) workflowByID(id int64) (*models.Workflow, error) {
	var workflow models.Workflow

	err := fp.readDoc(workflowsDir, id, &workflow)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewEntityError("WorkflowByID", "workflow", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %d: %w", id, err)
	}

	return &workflow, nil
}

// SaveWorkflow saves a workflow, assigning an ID on first save.
func (fp *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == 0 {
		id, err := fp.nextID("workflow")
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id
	}

	for _, version := range workflow.Versions {
		if err := fp.assignVersionIDs(workflow.ID, version); err != nil {
			return err
		}
	}

	return fp.writeDoc(workflowsDir, workflow.ID, workflow)
}

// DeleteWorkflow removes a workflow document. Draft-only unless force.
func (fp *Persistence) DeleteWorkflow(_ context.Context, id int64, force bool) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	workflow, err := fp.workflowByID(id)
	if err != nil {
		return err
	}

	if !force && workflow.Status != models.StatusDraft {
		return persistence.NewEntityError("DeleteWorkflow", "workflow", id, persistence.ErrNotDraft)
	}

	if err := os.Remove(fp.docPath(workflowsDir, id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete workflow %d: %w", id, err)
	}

	return nil
}

// VersionByID retrieves a workflow version, with stages, levels and
// interactions, by scanning workflow documents.
func (fp *Persistence) VersionByID(_ context.Context, id int64) (*models.WorkflowVersion, error) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.versionByID(id)
}

func (fp *Persistence) versionByID(id int64) (*models.WorkflowVersion, error) {
	var found *models.WorkflowVersion

	err := eachDoc(fp, workflowsDir, func(w *models.Workflow) error {
		for _, version := range w.Versions {
			if version.ID == id {
				found = version
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if found == nil {
		return nil, persistence.NewEntityError("VersionByID", "workflow_version", id, persistence.ErrVersionNotFound)
	}

	return found, nil
}

// SaveVersion writes a version back into its owning workflow document.
func (fp *Persistence) SaveVersion(_ context.Context, version *models.WorkflowVersion) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	return fp.saveVersion(version)
}

func (fp *Persistence) saveVersion(version *models.WorkflowVersion) error {
	workflow, err := fp.workflowByID(version.WorkflowID)
	if err != nil {
		return err
	}

	if err := fp.assignVersionIDs(workflow.ID, version); err != nil {
		return err
	}

	now := time.Now().UTC()
	if version.CreatedAt.IsZero() {
		version.CreatedAt = now
	}

	version.UpdatedAt = now

	replaced := false

	for i, existing := range workflow.Versions {
		if existing.ID == version.ID {
			workflow.Versions[i] = version
			replaced = true

			break
		}
	}

	if !replaced {
		workflow.Versions = append(workflow.Versions, version)
	}

	workflow.UpdatedAt = now

	return fp.writeDoc(workflowsDir, workflow.ID, workflow)
}

// assignVersionIDs hands out identifiers for a version and its stages,
// levels and interactions where they are still unset. Caller holds the mutex.
func (fp *Persistence) assignVersionIDs(workflowID int64, version *models.WorkflowVersion) error {
	version.WorkflowID = workflowID

	if version.ID == 0 {
		id, err := fp.nextID("workflow_version")
		if err != nil {
			return fmt.Errorf("failed to generate version ID: %w", err)
		}

		version.ID = id
	}

	for _, stage := range version.Stages {
		stage.WorkflowVersionID = version.ID

		if stage.ID == 0 {
			id, err := fp.nextID("workflow_stage")
			if err != nil {
				return fmt.Errorf("failed to generate stage ID: %w", err)
			}

			stage.ID = id
		}

		for _, level := range stage.ApprovalLevels {
			level.WorkflowStageID = stage.ID

			if level.ID == 0 {
				id, err := fp.nextID("approval_level")
				if err != nil {
					return fmt.Errorf("failed to generate approval level ID: %w", err)
				}

				level.ID = id
			}
		}

		for _, interaction := range stage.Interactions {
			interaction.WorkflowStageID = stage.ID

			if interaction.ID == 0 {
				id, err := fp.nextID("stage_interaction")
				if err != nil {
					return fmt.Errorf("failed to generate interaction ID: %w", err)
				}

				interaction.ID = id
			}
		}
	}

	return nil
}

package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/lumenlms/approvalflow/pkg/lifecycle"
	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/lumenlms/approvalflow/pkg/persistence"
	"github.com/lumenlms/approvalflow/pkg/transition"
)

// Deactivation checklists. A checklist declares which dependents block
// clearing an entity's active flag; entities without one cannot be
// deactivated at all.
var (
	// Approvers have no dependents of their own.
	approverChecklist = []lifecycle.Dependent{}

	approvalLevelChecklist = []lifecycle.Dependent{
		{Kind: "approver", FKField: "approval_level_id", Shape: lifecycle.ShapeActivatable},
		{Kind: "application", FKField: "current_approval_level_id", Shape: lifecycle.ShapeApplication},
	}

	stageChecklist = []lifecycle.Dependent{
		{Kind: "approval_level", FKField: "workflow_stage_id", Shape: lifecycle.ShapeActivatable},
		{Kind: "application", FKField: "current_stage_id", Shape: lifecycle.ShapeApplication},
	}
)

// CreateWorkflowRequest represents the request to create a draft workflow
// with its first version.
type CreateWorkflowRequest struct {
	Name        string                  `json:"name"        validate:"required,min=3"`
	Description string                  `json:"description"`
	IDNumber    string                  `json:"id_number"`
	Stages      []*models.WorkflowStage `json:"stages"      validate:"required,min=1"`
}

// Workflow handles workflow-definition business operations: drafting,
// publishing, archiving and the deactivation of stages, levels and approvers.
type Workflow struct {
	persistence persistence.Persistence
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(p persistence.Persistence, logger *slog.Logger) *Workflow {
	return &Workflow{
		persistence: p,
		validator:   validator.New(),
		logger:      logger,
	}
}

// List returns all workflows.
func (s *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	return s.persistence.Workflows(ctx)
}

// Get returns one workflow by ID.
func (s *Workflow) Get(ctx context.Context, id int64) (*models.Workflow, error) {
	return s.persistence.WorkflowByID(ctx, id)
}

// Create builds a draft workflow carrying one draft version with the given
// stages. Stage ordinals must be contiguous from 1.
func (s *Workflow) Create(ctx context.Context, req *CreateWorkflowRequest) (*models.Workflow, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, NewValidationError("CreateWorkflow", "INVALID_REQUEST", err.Error(), ErrInvalidRequest)
	}

	for _, stage := range req.Stages {
		if stage.Active {
			continue
		}

		stage.Active = true

		for _, level := range stage.ApprovalLevels {
			level.Active = true
		}
	}

	version := &models.WorkflowVersion{
		Status: models.StatusDraft,
		Stages: req.Stages,
	}

	if err := version.Validate(); err != nil {
		return nil, NewValidationError("CreateWorkflow", "INVALID_STAGES", err.Error(), ErrInvalidRequest)
	}

	workflow := &models.Workflow{
		Name:        req.Name,
		Description: req.Description,
		IDNumber:    req.IDNumber,
		Status:      models.StatusDraft,
		Versions:    []*models.WorkflowVersion{version},
	}

	if err := s.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Activate publishes a workflow: the workflow moves to active, its latest
// version becomes the active one, and the previously active version is
// archived.
func (s *Workflow) Activate(ctx context.Context, id int64) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	latest := workflow.LatestVersion()
	if latest == nil {
		return nil, NewValidationError("ActivateWorkflow", "NO_VERSION",
			fmt.Sprintf("workflow %d has no versions", id), ErrNoActiveVersion)
	}

	if err := latest.Validate(); err != nil {
		return nil, NewValidationError("ActivateWorkflow", "INVALID_STAGES", err.Error(), ErrInvalidRequest)
	}

	if err := lifecycle.Activate(workflow, "workflow", workflow.ID); err != nil {
		return nil, err
	}

	if previous := workflow.ActiveVersion(); previous != nil && previous.ID != latest.ID {
		if err := lifecycle.Archive(previous, "workflow_version", previous.ID); err != nil {
			return nil, err
		}
	}

	if err := lifecycle.Activate(latest, "workflow_version", latest.ID); err != nil {
		return nil, err
	}

	if err := s.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Archive retires a workflow and its active version. Idempotent.
func (s *Workflow) Archive(ctx context.Context, id int64) (*models.Workflow, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.Archive(workflow, "workflow", workflow.ID); err != nil {
		return nil, err
	}

	if active := workflow.ActiveVersion(); active != nil {
		if err := lifecycle.Archive(active, "workflow_version", active.ID); err != nil {
			return nil, err
		}
	}

	if err := s.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	return workflow, nil
}

// Delete removes a draft workflow. Force bypasses the draft-only rule
// entirely; it exists for deliberate cleanup, not for the regular API flow.
func (s *Workflow) Delete(ctx context.Context, id int64, force bool) error {
	workflow, err := s.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return err
	}

	if err := lifecycle.EnsureDeletable(workflow, "workflow", workflow.ID, force); err != nil {
		return err
	}

	return s.persistence.DeleteWorkflow(ctx, id, force)
}

// NewVersion drafts a follow-up version for a workflow. The draft coexists
// with the active version until the workflow is activated again.
func (s *Workflow) NewVersion(ctx context.Context, workflowID int64, stages []*models.WorkflowStage) (*models.WorkflowVersion, error) {
	workflow, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if len(stages) == 0 {
		return nil, NewValidationError("NewVersion", "NO_STAGES",
			"a version requires at least one stage", ErrStagesRequired)
	}

	version := &models.WorkflowVersion{
		WorkflowID: workflow.ID,
		Status:     models.StatusDraft,
		Stages:     stages,
	}

	if err := version.Validate(); err != nil {
		return nil, NewValidationError("NewVersion", "INVALID_STAGES", err.Error(), ErrInvalidRequest)
	}

	if err := s.persistence.SaveVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("failed to save version: %w", err)
	}

	return version, nil
}

// TransitionOptions returns the composite list of transitions a designer may
// configure for the given stage, across all strategies in sort order.
func (s *Workflow) TransitionOptions(ctx context.Context, versionID, stageID int64) ([]transition.Option, error) {
	version, err := s.persistence.VersionByID(ctx, versionID)
	if err != nil {
		return nil, err
	}

	stage := version.StageByID(stageID)
	if stage == nil {
		return nil, NewValidationError("TransitionOptions", "UNKNOWN_STAGE",
			fmt.Sprintf("stage %d is not part of version %d", stageID, versionID), ErrInvalidRequest)
	}

	return transition.NewProvider(version).OptionsFor(stage), nil
}

// DeactivateApprover clears an approver's active flag.
func (s *Workflow) DeactivateApprover(ctx context.Context, id int64, force bool) error {
	approver, err := s.persistence.ApproverByID(ctx, id)
	if err != nil {
		return err
	}

	return s.persistence.Deactivate(ctx, func(tx persistence.DeactivationTx) error {
		err := lifecycle.Deactivate(ctx, tx, s.logger, approver, "approver", id, approverChecklist, force)
		if err != nil {
			return err
		}

		return tx.SaveApprover(ctx, approver)
	})
}

// DeactivateLevel clears an approval level's active flag once no active
// approvers or in-flight applications depend on it.
func (s *Workflow) DeactivateLevel(ctx context.Context, versionID, levelID int64, force bool) error {
	version, err := s.persistence.VersionByID(ctx, versionID)
	if err != nil {
		return err
	}

	var level *models.ApprovalLevel

	for _, stage := range version.Stages {
		if found := stage.LevelByID(levelID); found != nil {
			level = found

			break
		}
	}

	if level == nil {
		return NewValidationError("DeactivateLevel", "UNKNOWN_LEVEL",
			fmt.Sprintf("approval level %d is not part of version %d", levelID, versionID), ErrInvalidRequest)
	}

	return s.persistence.Deactivate(ctx, func(tx persistence.DeactivationTx) error {
		err := lifecycle.Deactivate(ctx, tx, s.logger, level, "approval_level", levelID, approvalLevelChecklist, force)
		if err != nil {
			return err
		}

		return tx.SaveVersion(ctx, version)
	})
}

// DeactivateStage clears a stage's active flag once no active approval
// levels or in-flight applications depend on it.
func (s *Workflow) DeactivateStage(ctx context.Context, versionID, stageID int64, force bool) error {
	version, err := s.persistence.VersionByID(ctx, versionID)
	if err != nil {
		return err
	}

	stage := version.StageByID(stageID)
	if stage == nil {
		return NewValidationError("DeactivateStage", "UNKNOWN_STAGE",
			fmt.Sprintf("stage %d is not part of version %d", stageID, versionID), ErrInvalidRequest)
	}

	return s.persistence.Deactivate(ctx, func(tx persistence.DeactivationTx) error {
		err := lifecycle.Deactivate(ctx, tx, s.logger, stage, "workflow_stage", stageID, stageChecklist, force)
		if err != nil {
			return err
		}

		return tx.SaveVersion(ctx, version)
	})
}

// HealthCheck reports persistence health.
func (s *Workflow) HealthCheck(ctx context.Context) error {
	return s.persistence.HealthCheck(ctx)
}

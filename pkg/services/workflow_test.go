package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlms/approvalflow/pkg/lifecycle"
	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/lumenlms/approvalflow/pkg/persistence"
	"github.com/lumenlms/approvalflow/pkg/persistence/file"
)

func newWorkflowService(t *testing.T) *Workflow {
	t.Helper()

	return NewWorkflow(file.NewPersistence(t.TempDir()), slog.Default())
}

func testStages() []*models.WorkflowStage {
	return []*models.WorkflowStage{
		{
			Name:          "Request form",
			Type:          models.StageTypeFormSubmission,
			OrdinalNumber: 1,
			Interactions: []*models.StageInteraction{
				{ActionCode: "SUBMIT", DefaultTransition: models.TransitionNext},
			},
		},
		{
			Name:          "Approvals",
			Type:          models.StageTypeApprovals,
			OrdinalNumber: 2,
			ApprovalLevels: []*models.ApprovalLevel{
				{Name: "Manager", OrdinalNumber: 1},
				{Name: "Director", OrdinalNumber: 2},
			},
			Interactions: []*models.StageInteraction{
				{ActionCode: "APPROVE", DefaultTransition: models.TransitionNext},
				{ActionCode: "REJECT", DefaultTransition: models.TransitionReset},
			},
		},
		{
			Name:          "Finished",
			Type:          models.StageTypeFinished,
			OrdinalNumber: 3,
		},
	}
}

func TestWorkflow_Create(t *testing.T) {
	service := newWorkflowService(t)
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{
		Name:   "Course approval",
		Stages: testStages(),
	})
	require.NoError(t, err)

	assert.NotZero(t, workflow.ID)
	assert.Equal(t, models.StatusDraft, workflow.Status)
	require.Len(t, workflow.Versions, 1)
	assert.Equal(t, models.StatusDraft, workflow.Versions[0].Status)

	// Stages and their levels come back activated.
	for _, stage := range workflow.Versions[0].Stages {
		assert.True(t, stage.Active)

		for _, level := range stage.ApprovalLevels {
			assert.True(t, level.Active)
		}
	}
}

func TestWorkflow_Create_Invalid(t *testing.T) {
	service := newWorkflowService(t)
	ctx := context.Background()

	_, err := service.Create(ctx, &CreateWorkflowRequest{Name: "ab", Stages: testStages()})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	badOrdinals := testStages()
	badOrdinals[1].OrdinalNumber = 5

	_, err = service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: badOrdinals})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestWorkflow_Activate(t *testing.T) {
	service := newWorkflowService(t)
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: testStages()})
	require.NoError(t, err)

	activated, err := service.Activate(ctx, workflow.ID)
	require.NoError(t, err)

	assert.Equal(t, models.StatusActive, activated.Status)
	require.NotNil(t, activated.ActiveVersion())
}

func TestWorkflow_Activate_ArchivesPreviousVersion(t *testing.T) {
	service := newWorkflowService(t)
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: testStages()})
	require.NoError(t, err)

	_, err = service.Activate(ctx, workflow.ID)
	require.NoError(t, err)

	firstVersionID := workflow.Versions[0].ID

	_, err = service.NewVersion(ctx, workflow.ID, testStages())
	require.NoError(t, err)

	activated, err := service.Activate(ctx, workflow.ID)
	require.NoError(t, err)

	require.Len(t, activated.Versions, 2)
	assert.Equal(t, models.StatusArchived, activated.Versions[0].Status)
	assert.Equal(t, models.StatusActive, activated.Versions[1].Status)
	assert.Equal(t, firstVersionID, activated.Versions[0].ID)
}

func TestWorkflow_Activate_ArchivedWorkflowFails(t *testing.T) {
	service := newWorkflowService(t)
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: testStages()})
	require.NoError(t, err)

	_, err = service.Archive(ctx, workflow.ID)
	require.NoError(t, err)

	_, err = service.Activate(ctx, workflow.ID)
	require.Error(t, err)
	assert.True(t, lifecycle.IsInvalidTransition(err))
}

func TestWorkflow_Archive_Idempotent(t *testing.T) {
	service := newWorkflowService(t)
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: testStages()})
	require.NoError(t, err)

	_, err = service.Activate(ctx, workflow.ID)
	require.NoError(t, err)

	archived, err := service.Archive(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, archived.Status)

	archived, err = service.Archive(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, archived.Status)
}

func TestWorkflow_Delete_DraftOnly(t *testing.T) {
	service := newWorkflowService(t)
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: testStages()})
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, workflow.ID, false))

	_, err = service.Get(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflow_Delete_ActiveWithoutForce(t *testing.T) {
	service := newWorkflowService(t)
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: testStages()})
	require.NoError(t, err)

	_, err = service.Activate(ctx, workflow.ID)
	require.NoError(t, err)

	err = service.Delete(ctx, workflow.ID, false)
	require.Error(t, err)
	assert.ErrorIs(t, err, lifecycle.ErrCannotDelete)
}

func TestWorkflow_Delete_ForceBypassesDraftOnly(t *testing.T) {
	service := newWorkflowService(t)
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: testStages()})
	require.NoError(t, err)

	_, err = service.Activate(ctx, workflow.ID)
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, workflow.ID, true))

	_, err = service.Get(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflow_TransitionOptions(t *testing.T) {
	service := newWorkflowService(t)
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: testStages()})
	require.NoError(t, err)

	version := workflow.Versions[0]
	approvalsStage := version.Stages[1]

	options, err := service.TransitionOptions(ctx, version.ID, approvalsStage.ID)
	require.NoError(t, err)

	// Next, reset (REJECT configures it) and two stage jumps.
	require.Len(t, options, 4)
	assert.Equal(t, models.TransitionNext, options[0].Value)
	assert.Equal(t, models.TransitionReset, options[1].Value)

	_, err = service.TransitionOptions(ctx, version.ID, 4242)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestWorkflow_DeactivateApprover(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	service := NewWorkflow(store, slog.Default())
	ctx := context.Background()

	approver := &models.Approver{
		AssignmentID:    1,
		ApprovalLevelID: 5,
		Type:            models.ApproverTypeUser,
		Identifier:      77,
		Active:          true,
	}
	require.NoError(t, store.SaveApprover(ctx, approver))

	require.NoError(t, service.DeactivateApprover(ctx, approver.ID, false))

	loaded, err := store.ApproverByID(ctx, approver.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Active)
}

func TestWorkflow_DeactivateLevel_BlockedByActiveApprover(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	service := NewWorkflow(store, slog.Default())
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: testStages()})
	require.NoError(t, err)

	version := workflow.Versions[0]
	levelID := version.Stages[1].ApprovalLevels[0].ID

	approver := &models.Approver{
		AssignmentID:    1,
		ApprovalLevelID: levelID,
		Type:            models.ApproverTypeUser,
		Identifier:      77,
		Active:          true,
	}
	require.NoError(t, store.SaveApprover(ctx, approver))

	err = service.DeactivateLevel(ctx, version.ID, levelID, false)
	require.Error(t, err)
	assert.True(t, lifecycle.IsHasActiveDependencies(err))

	// After the approver is deactivated the level can follow.
	require.NoError(t, service.DeactivateApprover(ctx, approver.ID, false))
	require.NoError(t, service.DeactivateLevel(ctx, version.ID, levelID, false))

	reloaded, err := store.VersionByID(ctx, version.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Stages[1].ApprovalLevels[0].Active)
}

func TestWorkflow_DeactivateStage_BlockedByActiveLevel(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	service := NewWorkflow(store, slog.Default())
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: testStages()})
	require.NoError(t, err)

	version := workflow.Versions[0]
	approvalsStage := version.Stages[1]

	err = service.DeactivateStage(ctx, version.ID, approvalsStage.ID, false)
	require.Error(t, err)
	assert.True(t, lifecycle.IsHasActiveDependencies(err))

	// Force bypasses the checklist.
	require.NoError(t, service.DeactivateStage(ctx, version.ID, approvalsStage.ID, true))

	reloaded, err := store.VersionByID(ctx, version.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Stages[1].Active)
}

// snapshotStore counts saves issued outside a deactivation snapshot.
type snapshotStore struct {
	persistence.Persistence

	outerVersionSaves  int
	outerApproverSaves int
}

func (s *snapshotStore) SaveVersion(ctx context.Context, version *models.WorkflowVersion) error {
	s.outerVersionSaves++

	return s.Persistence.SaveVersion(ctx, version)
}

func (s *snapshotStore) SaveApprover(ctx context.Context, approver *models.Approver) error {
	s.outerApproverSaves++

	return s.Persistence.SaveApprover(ctx, approver)
}

func TestWorkflow_Deactivate_WritesInsideSnapshot(t *testing.T) {
	store := &snapshotStore{Persistence: file.NewPersistence(t.TempDir())}
	service := NewWorkflow(store, slog.Default())
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: testStages()})
	require.NoError(t, err)

	version := workflow.Versions[0]
	levelID := version.Stages[1].ApprovalLevels[0].ID

	approver := &models.Approver{
		AssignmentID:    1,
		ApprovalLevelID: levelID,
		Type:            models.ApproverTypeUser,
		Identifier:      77,
		Active:          true,
	}
	require.NoError(t, store.SaveApprover(ctx, approver))

	store.outerVersionSaves = 0
	store.outerApproverSaves = 0

	require.NoError(t, service.DeactivateApprover(ctx, approver.ID, false))
	require.NoError(t, service.DeactivateLevel(ctx, version.ID, levelID, false))

	// Both flag-clearing writes went through the snapshot, not the plain
	// save methods, so no dependent can appear between check and save.
	assert.Zero(t, store.outerApproverSaves)
	assert.Zero(t, store.outerVersionSaves)

	reloaded, err := store.VersionByID(ctx, version.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Stages[1].ApprovalLevels[0].Active)
}

func TestWorkflow_NewVersion_RequiresStages(t *testing.T) {
	service := newWorkflowService(t)
	ctx := context.Background()

	workflow, err := service.Create(ctx, &CreateWorkflowRequest{Name: "Course approval", Stages: testStages()})
	require.NoError(t, err)

	_, err = service.NewVersion(ctx, workflow.ID, nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

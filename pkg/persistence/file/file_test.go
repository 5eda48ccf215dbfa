package file

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlms/approvalflow/pkg/activity"
	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/lumenlms/approvalflow/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func draftWorkflow() *models.Workflow {
	return &models.Workflow{
		Name:   "Course approval",
		Status: models.StatusDraft,
		Versions: []*models.WorkflowVersion{
			{
				Status: models.StatusDraft,
				Stages: []*models.WorkflowStage{
					{
						Name:          "Request form",
						Type:          models.StageTypeFormSubmission,
						OrdinalNumber: 1,
						Active:        true,
						Interactions: []*models.StageInteraction{
							{ActionCode: "SUBMIT", DefaultTransition: models.TransitionNext},
						},
					},
					{
						Name:          "Approvals",
						Type:          models.StageTypeApprovals,
						OrdinalNumber: 2,
						Active:        true,
						ApprovalLevels: []*models.ApprovalLevel{
							{Name: "Manager", OrdinalNumber: 1, Active: true},
						},
					},
					{
						Name:          "Finished",
						Type:          models.StageTypeFinished,
						OrdinalNumber: 3,
						Active:        true,
					},
				},
			},
		},
	}
}

func TestSaveWorkflow_AssignsNestedIDs(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	workflow := draftWorkflow()
	require.NoError(t, fp.SaveWorkflow(ctx, workflow))

	assert.NotZero(t, workflow.ID)
	require.Len(t, workflow.Versions, 1)

	version := workflow.Versions[0]
	assert.NotZero(t, version.ID)
	assert.Equal(t, workflow.ID, version.WorkflowID)

	for _, stage := range version.Stages {
		assert.NotZero(t, stage.ID)
		assert.Equal(t, version.ID, stage.WorkflowVersionID)

		for _, level := range stage.ApprovalLevels {
			assert.NotZero(t, level.ID)
			assert.Equal(t, stage.ID, level.WorkflowStageID)
		}

		for _, interaction := range stage.Interactions {
			assert.NotZero(t, interaction.ID)
			assert.Equal(t, stage.ID, interaction.WorkflowStageID)
		}
	}

	assert.False(t, workflow.CreatedAt.IsZero())
}

func TestWorkflowByID_RoundTrip(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	workflow := draftWorkflow()
	require.NoError(t, fp.SaveWorkflow(ctx, workflow))

	loaded, err := fp.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)

	assert.Equal(t, workflow.Name, loaded.Name)
	require.Len(t, loaded.Versions, 1)
	assert.Len(t, loaded.Versions[0].Stages, 3)
}

func TestWorkflowByID_NotFound(t *testing.T) {
	fp := newTestPersistence(t)

	_, err := fp.WorkflowByID(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestDeleteWorkflow_DraftOnly(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	workflow := draftWorkflow()
	workflow.Status = models.StatusActive
	require.NoError(t, fp.SaveWorkflow(ctx, workflow))

	err := fp.DeleteWorkflow(ctx, workflow.ID, false)
	require.Error(t, err)
	assert.True(t, persistence.IsNotDraft(err))

	require.NoError(t, fp.DeleteWorkflow(ctx, workflow.ID, true))

	_, err = fp.WorkflowByID(ctx, workflow.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestVersionByID_ScansWorkflows(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	workflow := draftWorkflow()
	require.NoError(t, fp.SaveWorkflow(ctx, workflow))

	version, err := fp.VersionByID(ctx, workflow.Versions[0].ID)
	require.NoError(t, err)
	assert.Len(t, version.Stages, 3)

	_, err = fp.VersionByID(ctx, 4242)
	require.Error(t, err)
	assert.True(t, persistence.IsVersionNotFound(err))
}

func TestSaveVersion_AppendsToWorkflow(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	workflow := draftWorkflow()
	require.NoError(t, fp.SaveWorkflow(ctx, workflow))

	followUp := &models.WorkflowVersion{
		WorkflowID: workflow.ID,
		Status:     models.StatusDraft,
		Stages: []*models.WorkflowStage{
			{Name: "Only stage", Type: models.StageTypeFormSubmission, OrdinalNumber: 1, Active: true},
		},
	}
	require.NoError(t, fp.SaveVersion(ctx, followUp))
	assert.NotZero(t, followUp.ID)

	loaded, err := fp.WorkflowByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Len(t, loaded.Versions, 2)
}

func TestAssignmentAndApprover_RoundTrip(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	assignment := &models.Assignment{WorkflowID: 1, Name: "Engineering", Status: models.StatusActive}
	require.NoError(t, fp.SaveAssignment(ctx, assignment))
	assert.NotZero(t, assignment.ID)

	loadedAssignment, err := fp.AssignmentByID(ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, "Engineering", loadedAssignment.Name)

	approver := &models.Approver{
		AssignmentID:    assignment.ID,
		ApprovalLevelID: 5,
		Type:            models.ApproverTypeUser,
		Identifier:      77,
		Active:          true,
	}
	require.NoError(t, fp.SaveApprover(ctx, approver))

	loadedApprover, err := fp.ApproverByID(ctx, approver.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(77), loadedApprover.Identifier)

	_, err = fp.AssignmentByID(ctx, 4242)
	assert.True(t, persistence.IsAssignmentNotFound(err))

	_, err = fp.ApproverByID(ctx, 4242)
	assert.True(t, persistence.IsApproverNotFound(err))
}

func TestApplyTransition_PersistsPositionAndActivity(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	app := &models.Application{WorkflowVersionID: 1, UserID: 9, Title: "Request", CurrentStageID: 1}
	require.NoError(t, fp.SaveApplication(ctx, app))

	app.CurrentStageID = 2
	record := &models.ApplicationActivity{
		ApplicationID:   app.ID,
		WorkflowStageID: 2,
		ActivityType:    activity.TypeStageStarted,
	}

	require.NoError(t, fp.ApplyTransition(ctx, app, record))
	assert.NotZero(t, record.ID)
	assert.False(t, record.Timestamp.IsZero())

	loaded, err := fp.ApplicationByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.CurrentStageID)

	activities, err := fp.ActivitiesByApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, activity.TypeStageStarted, activities[0].ActivityType)
}

func TestAppendActivity_OrderedByID(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	app := &models.Application{WorkflowVersionID: 1, UserID: 9, Title: "Request", CurrentStageID: 1}
	require.NoError(t, fp.SaveApplication(ctx, app))

	for _, code := range []int{activity.TypeCreation, activity.TypeStageSubmitted, activity.TypeStageStarted} {
		record := &models.ApplicationActivity{ApplicationID: app.ID, ActivityType: code}
		require.NoError(t, fp.AppendActivity(ctx, record))
	}

	activities, err := fp.ActivitiesByApplication(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, activities, 3)

	assert.Equal(t, activity.TypeCreation, activities[0].ActivityType)
	assert.Equal(t, activity.TypeStageSubmitted, activities[1].ActivityType)
	assert.Equal(t, activity.TypeStageStarted, activities[2].ActivityType)
	assert.Less(t, activities[0].ID, activities[1].ID)
}

func TestHasInFlightApplications(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	level := int64(21)
	app := &models.Application{
		WorkflowVersionID:      1,
		UserID:                 9,
		Title:                  "Request",
		CurrentStageID:         2,
		CurrentApprovalLevelID: &level,
	}
	require.NoError(t, fp.SaveApplication(ctx, app))

	blocked, err := fp.HasInFlightApplications(ctx, "current_approval_level_id", 21)
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = fp.HasInFlightApplications(ctx, "current_stage_id", 99)
	require.NoError(t, err)
	assert.False(t, blocked)

	// Completed applications no longer block.
	now := app.CreatedAt
	app.Completed = &now
	require.NoError(t, fp.SaveApplication(ctx, app))

	blocked, err = fp.HasInFlightApplications(ctx, "current_approval_level_id", 21)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestHasActiveDependents(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	workflow := draftWorkflow()
	require.NoError(t, fp.SaveWorkflow(ctx, workflow))

	version := workflow.Versions[0]
	approvalsStage := version.Stages[1]
	levelID := approvalsStage.ApprovalLevels[0].ID

	approver := &models.Approver{
		AssignmentID:    1,
		ApprovalLevelID: levelID,
		Type:            models.ApproverTypeUser,
		Identifier:      77,
		Active:          true,
	}
	require.NoError(t, fp.SaveApprover(ctx, approver))

	blocked, err := fp.HasActiveDependents(ctx, "approver", "approval_level_id", levelID)
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = fp.HasActiveDependents(ctx, "approval_level", "workflow_stage_id", approvalsStage.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = fp.HasActiveDependents(ctx, "workflow_stage", "workflow_version_id", version.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	_, err = fp.HasActiveDependents(ctx, "martian", "workflow_id", 1)
	assert.Error(t, err)
}

func TestHasNonDraftDependents(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	workflow := draftWorkflow()
	require.NoError(t, fp.SaveWorkflow(ctx, workflow))

	blocked, err := fp.HasNonDraftDependents(ctx, "workflow_version", "workflow_id", workflow.ID)
	require.NoError(t, err)
	assert.False(t, blocked)

	workflow.Versions[0].Status = models.StatusActive
	require.NoError(t, fp.SaveWorkflow(ctx, workflow))

	blocked, err = fp.HasNonDraftDependents(ctx, "workflow_version", "workflow_id", workflow.ID)
	require.NoError(t, err)
	assert.True(t, blocked)

	assignment := &models.Assignment{WorkflowID: workflow.ID, Name: "Engineering", Status: models.StatusActive}
	require.NoError(t, fp.SaveAssignment(ctx, assignment))

	blocked, err = fp.HasNonDraftDependents(ctx, "assignment", "workflow_id", workflow.ID)
	require.NoError(t, err)
	assert.True(t, blocked)
}

func TestDeactivate_ChecksAndSaveShareOneSnapshot(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	workflow := draftWorkflow()
	require.NoError(t, fp.SaveWorkflow(ctx, workflow))

	version := workflow.Versions[0]
	level := version.Stages[1].ApprovalLevels[0]

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- fp.Deactivate(ctx, func(tx persistence.DeactivationTx) error {
			close(entered)
			<-release

			blocked, err := tx.HasActiveDependents(ctx, "approver", "approval_level_id", level.ID)
			if err != nil {
				return err
			}

			if blocked {
				return errors.New("active approver")
			}

			level.Active = false

			return tx.SaveVersion(ctx, version)
		})
	}()

	<-entered

	// A concurrent approver save must wait until the deactivation has
	// both checked and written; it cannot land between the two.
	saved := make(chan error, 1)

	go func() {
		saved <- fp.SaveApprover(ctx, &models.Approver{
			AssignmentID:    1,
			ApprovalLevelID: level.ID,
			Type:            models.ApproverTypeUser,
			Identifier:      77,
			Active:          true,
		})
	}()

	select {
	case err := <-saved:
		t.Fatalf("approver save completed inside the deactivation snapshot: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, <-saved)

	reloaded, err := fp.VersionByID(ctx, version.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.Stages[1].ApprovalLevels[0].Active)
}

func TestDeactivate_BlockedLeavesFlagUntouched(t *testing.T) {
	fp := newTestPersistence(t)
	ctx := context.Background()

	workflow := draftWorkflow()
	require.NoError(t, fp.SaveWorkflow(ctx, workflow))

	version := workflow.Versions[0]
	level := version.Stages[1].ApprovalLevels[0]

	approver := &models.Approver{
		AssignmentID:    1,
		ApprovalLevelID: level.ID,
		Type:            models.ApproverTypeUser,
		Identifier:      77,
		Active:          true,
	}
	require.NoError(t, fp.SaveApprover(ctx, approver))

	errBlocked := errors.New("active approver")

	err := fp.Deactivate(ctx, func(tx persistence.DeactivationTx) error {
		blocked, err := tx.HasActiveDependents(ctx, "approver", "approval_level_id", level.ID)
		if err != nil {
			return err
		}

		if blocked {
			return errBlocked
		}

		level.Active = false

		return tx.SaveVersion(ctx, version)
	})
	assert.ErrorIs(t, err, errBlocked)

	reloaded, err := fp.VersionByID(ctx, version.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Stages[1].ApprovalLevels[0].Active)
}

func TestHealthCheck(t *testing.T) {
	fp := newTestPersistence(t)
	assert.NoError(t, fp.HealthCheck(context.Background()))

	missing := NewPersistence("/nonexistent/approvalflow-test-root")
	assert.Error(t, missing.HealthCheck(context.Background()))
}

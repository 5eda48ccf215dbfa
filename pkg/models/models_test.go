package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_ParseAndString(t *testing.T) {
	tests := []struct {
		name   string
		status Status
	}{
		{"draft", StatusDraft},
		{"active", StatusActive},
		{"archived", StatusArchived},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseStatus(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.status, parsed)
			assert.Equal(t, tt.name, parsed.String())
			assert.True(t, parsed.Valid())
		})
	}
}

func TestStatus_ParseUnknown(t *testing.T) {
	_, err := ParseStatus("published")
	assert.Error(t, err)
	assert.False(t, Status(0).Valid())
	assert.False(t, Status(4).Valid())
}

func TestWorkflowVersion_Validate_ContiguousOrdinals(t *testing.T) {
	version := &WorkflowVersion{
		ID: 10,
		Stages: []*WorkflowStage{
			{ID: 1, OrdinalNumber: 1, Name: "Form", Type: StageTypeFormSubmission},
			{ID: 2, OrdinalNumber: 2, Name: "Approvals", Type: StageTypeApprovals},
			{ID: 3, OrdinalNumber: 3, Name: "Done", Type: StageTypeFinished},
		},
	}

	assert.NoError(t, version.Validate())
}

func TestWorkflowVersion_Validate_GapInOrdinals(t *testing.T) {
	version := &WorkflowVersion{
		Stages: []*WorkflowStage{
			{ID: 1, OrdinalNumber: 1},
			{ID: 2, OrdinalNumber: 3},
		},
	}

	assert.Error(t, version.Validate())
}

func TestWorkflowVersion_Validate_ForeignStage(t *testing.T) {
	version := &WorkflowVersion{
		ID: 10,
		Stages: []*WorkflowStage{
			{ID: 1, OrdinalNumber: 1, WorkflowVersionID: 99},
		},
	}

	assert.Error(t, version.Validate())
}

func TestWorkflowVersion_StageNavigation(t *testing.T) {
	first := &WorkflowStage{ID: 1, OrdinalNumber: 1}
	second := &WorkflowStage{ID: 2, OrdinalNumber: 2}
	version := &WorkflowVersion{Stages: []*WorkflowStage{first, second}}

	assert.Equal(t, first, version.FirstStage())
	assert.Equal(t, second, version.StageAfter(first))
	assert.Nil(t, version.StageAfter(second))
	assert.Equal(t, second, version.StageByID(2))
	assert.Nil(t, version.StageByID(42))
	assert.Nil(t, version.StageAfter(&WorkflowStage{ID: 42}))
}

func TestWorkflow_ActiveAndLatestVersion(t *testing.T) {
	archived := &WorkflowVersion{ID: 1, Status: StatusArchived}
	active := &WorkflowVersion{ID: 2, Status: StatusActive}
	draft := &WorkflowVersion{ID: 3, Status: StatusDraft}
	workflow := &Workflow{Versions: []*WorkflowVersion{archived, active, draft}}

	assert.Equal(t, active, workflow.ActiveVersion())
	assert.Equal(t, draft, workflow.LatestVersion())

	empty := &Workflow{}
	assert.Nil(t, empty.ActiveVersion())
	assert.Nil(t, empty.LatestVersion())
}

func TestWorkflowStage_InitialState_ApprovalsStage(t *testing.T) {
	levelOne := &ApprovalLevel{ID: 11, OrdinalNumber: 1}
	levelTwo := &ApprovalLevel{ID: 12, OrdinalNumber: 2}
	stage := &WorkflowStage{
		ID:             5,
		Type:           StageTypeApprovals,
		ApprovalLevels: []*ApprovalLevel{levelOne, levelTwo},
	}

	state := stage.InitialState()
	assert.Equal(t, stage, state.Stage)
	assert.Equal(t, levelOne, state.ApprovalLevel)
}

func TestWorkflowStage_InitialState_FormStage(t *testing.T) {
	stage := &WorkflowStage{ID: 5, Type: StageTypeFormSubmission}

	state := stage.InitialState()
	assert.Equal(t, stage, state.Stage)
	assert.Nil(t, state.ApprovalLevel)
}

func TestWorkflowStage_LevelNavigation(t *testing.T) {
	levelOne := &ApprovalLevel{ID: 11, OrdinalNumber: 1}
	levelTwo := &ApprovalLevel{ID: 12, OrdinalNumber: 2}
	stage := &WorkflowStage{ApprovalLevels: []*ApprovalLevel{levelOne, levelTwo}}

	assert.Equal(t, levelTwo, stage.LevelAfter(levelOne))
	assert.Nil(t, stage.LevelAfter(levelTwo))
	assert.Equal(t, levelOne, stage.LevelByID(11))
	assert.Nil(t, stage.LevelByID(42))
}

func TestApplication_StateRoundTrip(t *testing.T) {
	level := &ApprovalLevel{ID: 21, OrdinalNumber: 1}
	stage := &WorkflowStage{ID: 7, OrdinalNumber: 1, Type: StageTypeApprovals, ApprovalLevels: []*ApprovalLevel{level}}
	version := &WorkflowVersion{ID: 3, Stages: []*WorkflowStage{stage}}

	app := &Application{WorkflowVersionID: 3}
	app.SetState(stage.InitialState())

	assert.Equal(t, int64(7), app.CurrentStageID)
	require.NotNil(t, app.CurrentApprovalLevelID)
	assert.Equal(t, int64(21), *app.CurrentApprovalLevelID)

	state, err := app.CurrentState(version)
	require.NoError(t, err)
	assert.Equal(t, stage, state.Stage)
	assert.Equal(t, level, state.ApprovalLevel)

	app.SetState(ApplicationState{Stage: stage})
	assert.Nil(t, app.CurrentApprovalLevelID)
}

func TestApplication_CurrentState_UnknownStage(t *testing.T) {
	version := &WorkflowVersion{ID: 3, Stages: []*WorkflowStage{{ID: 7}}}
	app := &Application{CurrentStageID: 99}

	_, err := app.CurrentState(version)
	assert.Error(t, err)
}

func TestApplication_CurrentState_UnknownLevel(t *testing.T) {
	stage := &WorkflowStage{ID: 7}
	version := &WorkflowVersion{ID: 3, Stages: []*WorkflowStage{stage}}

	missing := int64(99)
	app := &Application{CurrentStageID: 7, CurrentApprovalLevelID: &missing}

	_, err := app.CurrentState(version)
	assert.Error(t, err)
}

func TestApplicationState_Equal(t *testing.T) {
	stage := &WorkflowStage{ID: 7}
	level := &ApprovalLevel{ID: 21}

	assert.True(t, ApplicationState{Stage: stage}.Equal(ApplicationState{Stage: &WorkflowStage{ID: 7}}))
	assert.False(t, ApplicationState{Stage: stage}.Equal(ApplicationState{Stage: &WorkflowStage{ID: 8}}))
	assert.False(t, ApplicationState{Stage: stage}.Equal(ApplicationState{Stage: stage, ApprovalLevel: level}))
	assert.True(t,
		ApplicationState{Stage: stage, ApprovalLevel: level}.Equal(
			ApplicationState{Stage: stage, ApprovalLevel: &ApprovalLevel{ID: 21}}))
}

func TestApplication_InFlight(t *testing.T) {
	app := &Application{}
	assert.True(t, app.InFlight())

	now := app.CreatedAt
	app.Completed = &now
	assert.False(t, app.InFlight())
}

func TestApplicationActivity_FromSystem(t *testing.T) {
	record := &ApplicationActivity{}
	assert.True(t, record.FromSystem())

	user := int64(5)
	record.UserID = &user
	assert.False(t, record.FromSystem())
}

package activity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlms/approvalflow/pkg/events"
	"github.com/lumenlms/approvalflow/pkg/models"
)

func TestDefault_ContainsAllBuiltinTypes(t *testing.T) {
	registry := Default()

	assert.Len(t, registry.Handlers(), 19)

	for code := TypeCreation; code <= TypeApprovalsReset; code++ {
		handler, err := registry.From(code)
		require.NoError(t, err)
		assert.Equal(t, code, handler.Type())
		assert.NotEmpty(t, handler.Key())
	}
}

func TestRegistry_UnknownCode(t *testing.T) {
	_, err := Default().From(999)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownActivityType)
}

func TestNewRegistry_DuplicateCode(t *testing.T) {
	_, err := NewRegistry(Creation{}, Creation{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "registered twice")
}

func TestCreation_ValidInfo(t *testing.T) {
	tests := []struct {
		name  string
		info  map[string]any
		valid bool
	}{
		{"empty", map[string]any{}, true},
		{"nil", nil, true},
		{"integer_source", map[string]any{"source": 7}, true},
		{"string_source", map[string]any{"source": "7"}, false},
		{"extra_key", map[string]any{"source": 7, "note": "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, Creation{}.ValidInfo(tt.info))
		})
	}
}

func TestNotificationSent_ValidInfo(t *testing.T) {
	tests := []struct {
		name  string
		info  map[string]any
		valid bool
	}{
		{"known_pair", map[string]any{"resolver": "stage_started", "recipient": "applicant"}, true},
		{"unknown_resolver", map[string]any{"resolver": "nonsense", "recipient": "applicant"}, false},
		{"unknown_recipient", map[string]any{"resolver": "stage_started", "recipient": "nobody"}, false},
		{"missing_recipient", map[string]any{"resolver": "stage_started"}, false},
		{"non_string_resolver", map[string]any{"resolver": 1, "recipient": "applicant"}, false},
		{"empty", map[string]any{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, NotificationSent{}.ValidInfo(tt.info))
		})
	}
}

func TestBaseContract_RejectsPayload(t *testing.T) {
	assert.True(t, Withdrawn{}.ValidInfo(nil))
	assert.True(t, Withdrawn{}.ValidInfo(map[string]any{}))
	assert.False(t, Withdrawn{}.ValidInfo(map[string]any{"anything": 1}))
}

func TestNewRecord_CopiesPosition(t *testing.T) {
	level := int64(21)
	actor := int64(5)
	app := &models.Application{
		ID:                     3,
		CurrentStageID:         7,
		CurrentApprovalLevelID: &level,
	}

	record, err := NewRecord(StageSubmitted{}, app, &actor, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(3), record.ApplicationID)
	assert.Equal(t, int64(7), record.WorkflowStageID)
	require.NotNil(t, record.ApprovalLevelID)
	assert.Equal(t, int64(21), *record.ApprovalLevelID)
	assert.Equal(t, TypeStageSubmitted, record.ActivityType)
	require.NotNil(t, record.UserID)
	assert.Equal(t, int64(5), *record.UserID)
}

func TestNewRecord_InvalidInfo(t *testing.T) {
	app := &models.Application{ID: 3}

	_, err := NewRecord(Withdrawn{}, app, nil, map[string]any{"junk": true})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidActivityInfo)
}

func TestHandlerEvents(t *testing.T) {
	actor := int64(5)
	app := &models.Application{ID: 3, WorkflowVersionID: 2, CurrentStageID: 7}

	created := Creation{}.Event(app, &actor, nil)
	require.NotNil(t, created)
	assert.Equal(t, events.ApplicationCreatedEvent, created.GetType())

	finished := Finished{}.Event(app, nil, nil)
	require.NotNil(t, finished)
	assert.Equal(t, events.ApplicationCompletedEvent, finished.GetType())

	// Level start outside an approvals stage fires nothing.
	assert.Nil(t, LevelStarted{}.Event(app, nil, nil))

	level := int64(21)
	app.CurrentApprovalLevelID = &level
	assert.NotNil(t, LevelStarted{}.Event(app, nil, map[string]any{"level_name": "Manager"}))

	// Pure audit types fire no event at all.
	assert.Nil(t, CommentCreated{}.Event(app, &actor, nil))
	assert.Nil(t, StageEnded{}.Event(app, nil, nil))
}

type stubLocalizer struct{}

func (stubLocalizer) Get(key string, args map[string]any) string {
	return fmt.Sprintf("%s user=%v", key, args["user"])
}

type stubUserRenderer struct{}

func (stubUserRenderer) Render(userID int64) string {
	return fmt.Sprintf("user-%d", userID)
}

func TestDescribe_UserAttributed(t *testing.T) {
	user := int64(5)
	record := &models.ApplicationActivity{ID: 1, UserID: &user}

	text, err := Describe(Withdrawn{}, record, stubLocalizer{}, stubUserRenderer{})
	require.NoError(t, err)
	assert.Equal(t, "activity_type_withdrawn_desc user=user-5", text)
}

func TestDescribe_UserRequired(t *testing.T) {
	record := &models.ApplicationActivity{ID: 1}

	_, err := Describe(Withdrawn{}, record, stubLocalizer{}, stubUserRenderer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a user")
}

func TestDescribe_SystemNarration(t *testing.T) {
	record := &models.ApplicationActivity{ID: 1}

	text, err := Describe(StageStarted{}, record, stubLocalizer{}, stubUserRenderer{})
	require.NoError(t, err)
	assert.Equal(t, "activity_type_stage_started_desc user=<nil>", text)
}

func TestLabelAndDescriptionKeys(t *testing.T) {
	assert.Equal(t, "activity_type_creation", LabelKey(Creation{}))
	assert.Equal(t, "activity_type_creation_desc", DescriptionKey(Creation{}))
}

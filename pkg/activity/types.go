package activity

import (
	"github.com/lumenlms/approvalflow/pkg/eventbus"
	"github.com/lumenlms/approvalflow/pkg/events"
	"github.com/lumenlms/approvalflow/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// Stable activity type codes. Append-only: a code is never reused for a
// different semantic meaning, or the historical audit trail stops being
// interpretable.
const (
	TypeCreation         = 1
	TypeWithdrawn        = 2
	TypeStageStarted     = 3
	TypeStageSubmitted   = 4
	TypeStageAllApproved = 5
	TypeStageEnded       = 6
	TypeLevelStarted     = 7
	TypeLevelApproved    = 8
	TypeLevelRejected    = 9
	TypeLevelEnded       = 10
	TypeFinished         = 11
	TypeCommentCreated   = 12
	TypeCommentUpdated   = 13
	TypeCommentReplied   = 14
	TypeCommentDeleted   = 15
	TypeNotificationSent = 16
	TypeUploaded         = 17
	TypeEdited           = 18
	TypeApprovalsReset   = 19
)

func builtinHandlers() []Handler {
	return []Handler{
		Creation{},
		Withdrawn{},
		StageStarted{},
		StageSubmitted{},
		StageAllApproved{},
		StageEnded{},
		LevelStarted{},
		LevelApproved{},
		LevelRejected{},
		LevelEnded{},
		Finished{},
		CommentCreated{},
		CommentUpdated{},
		CommentReplied{},
		CommentDeleted{},
		NotificationSent{},
		Uploaded{},
		Edited{},
		ApprovalsReset{},
	}
}

// base supplies the default contract: an empty payload and no event.
type base struct{}

func (base) ValidInfo(info map[string]any) bool {
	return len(info) == 0
}

func (base) Event(_ *models.Application, _ *int64, _ map[string]any) eventbus.Event {
	return nil
}

func mustCompileSchema(doc string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc))
	if err != nil {
		panic(err)
	}

	return schema
}

func schemaValid(schema *gojsonschema.Schema, info map[string]any) bool {
	if info == nil {
		info = map[string]any{}
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(info))
	if err != nil {
		return false
	}

	return result.Valid()
}

func actorEvent(eventType events.EventType, app *models.Application, actorID *int64) events.BaseEvent {
	base := events.NewBaseEvent(eventType, app.ID)
	base.ActorUserID = actorID

	return base
}

// Creation records that the application came into existence. The optional
// numeric source points at the application this one was cloned from.
type Creation struct{ base }

var creationInfoSchema = mustCompileSchema(`{
	"type": "object",
	"properties": {
		"source": {"type": "integer"}
	},
	"additionalProperties": false
}`)

func (Creation) Type() int            { return TypeCreation }
func (Creation) Key() string          { return "creation" }
func (Creation) Narration() Narration { return UserToSystem }

func (Creation) ValidInfo(info map[string]any) bool {
	return schemaValid(creationInfoSchema, info)
}

func (Creation) Event(app *models.Application, actorID *int64, _ map[string]any) eventbus.Event {
	return events.ApplicationCreated{
		BaseEvent:         actorEvent(events.ApplicationCreatedEvent, app, actorID),
		WorkflowVersionID: app.WorkflowVersionID,
		StageID:           app.CurrentStageID,
	}
}

// Withdrawn records the applicant pulling the application back.
type Withdrawn struct{ base }

func (Withdrawn) Type() int            { return TypeWithdrawn }
func (Withdrawn) Key() string          { return "withdrawn" }
func (Withdrawn) Narration() Narration { return UserToSystem }

func (Withdrawn) Event(app *models.Application, actorID *int64, _ map[string]any) eventbus.Event {
	return events.ApplicationWithdrawn{
		BaseEvent: actorEvent(events.ApplicationWithdrawnEvent, app, actorID),
		StageID:   app.CurrentStageID,
	}
}

// StageStarted records the application entering a stage.
type StageStarted struct{ base }

func (StageStarted) Type() int            { return TypeStageStarted }
func (StageStarted) Key() string          { return "stage_started" }
func (StageStarted) Narration() Narration { return SystemToSystem }

func (StageStarted) Event(app *models.Application, actorID *int64, info map[string]any) eventbus.Event {
	name, _ := info["stage_name"].(string)

	return events.ApplicationStageStarted{
		BaseEvent: actorEvent(events.ApplicationStageStartedEvent, app, actorID),
		StageID:   app.CurrentStageID,
		StageName: name,
	}
}

// ValidInfo allows an optional stage_name carried into the fired event.
func (StageStarted) ValidInfo(info map[string]any) bool {
	return schemaValid(stageStartedInfoSchema, info)
}

var stageStartedInfoSchema = mustCompileSchema(`{
	"type": "object",
	"properties": {
		"stage_name": {"type": "string"}
	},
	"additionalProperties": false
}`)

// StageSubmitted records the applicant submitting the stage's form.
type StageSubmitted struct{ base }

func (StageSubmitted) Type() int            { return TypeStageSubmitted }
func (StageSubmitted) Key() string          { return "stage_submitted" }
func (StageSubmitted) Narration() Narration { return UserToSystem }

func (StageSubmitted) Event(app *models.Application, actorID *int64, _ map[string]any) eventbus.Event {
	return events.ApplicationSubmitted{
		BaseEvent: actorEvent(events.ApplicationSubmittedEvent, app, actorID),
		StageID:   app.CurrentStageID,
	}
}

// StageAllApproved records every approval level of a stage signing off.
type StageAllApproved struct{ base }

func (StageAllApproved) Type() int            { return TypeStageAllApproved }
func (StageAllApproved) Key() string          { return "stage_all_approved" }
func (StageAllApproved) Narration() Narration { return SystemToSystem }

// StageEnded records the application leaving a stage.
type StageEnded struct{ base }

func (StageEnded) Type() int            { return TypeStageEnded }
func (StageEnded) Key() string          { return "stage_ended" }
func (StageEnded) Narration() Narration { return SystemToSystem }

// LevelStarted records an approval level becoming the active one.
type LevelStarted struct{ base }

func (LevelStarted) Type() int            { return TypeLevelStarted }
func (LevelStarted) Key() string          { return "level_started" }
func (LevelStarted) Narration() Narration { return SystemToSystem }

func (LevelStarted) Event(app *models.Application, actorID *int64, info map[string]any) eventbus.Event {
	if app.CurrentApprovalLevelID == nil {
		return nil
	}

	name, _ := info["level_name"].(string)

	return events.ApplicationLevelStarted{
		BaseEvent: actorEvent(events.ApplicationLevelStartedEvent, app, actorID),
		StageID:   app.CurrentStageID,
		LevelID:   *app.CurrentApprovalLevelID,
		LevelName: name,
	}
}

func (LevelStarted) ValidInfo(info map[string]any) bool {
	return schemaValid(levelStartedInfoSchema, info)
}

var levelStartedInfoSchema = mustCompileSchema(`{
	"type": "object",
	"properties": {
		"level_name": {"type": "string"}
	},
	"additionalProperties": false
}`)

// LevelApproved records a user approving at the current level.
type LevelApproved struct{ base }

func (LevelApproved) Type() int            { return TypeLevelApproved }
func (LevelApproved) Key() string          { return "level_approved" }
func (LevelApproved) Narration() Narration { return UserToSystem }

// LevelRejected records a user rejecting at the current level.
type LevelRejected struct{ base }

func (LevelRejected) Type() int            { return TypeLevelRejected }
func (LevelRejected) Key() string          { return "level_rejected" }
func (LevelRejected) Narration() Narration { return UserToSystem }

// LevelEnded records an approval level being fully resolved.
type LevelEnded struct{ base }

func (LevelEnded) Type() int            { return TypeLevelEnded }
func (LevelEnded) Key() string          { return "level_ended" }
func (LevelEnded) Narration() Narration { return SystemToSystem }

// Finished records the application reaching the terminal stage.
type Finished struct{ base }

func (Finished) Type() int            { return TypeFinished }
func (Finished) Key() string          { return "finished" }
func (Finished) Narration() Narration { return SystemToUser }

func (Finished) Event(app *models.Application, actorID *int64, _ map[string]any) eventbus.Event {
	return events.ApplicationCompleted{
		BaseEvent: actorEvent(events.ApplicationCompletedEvent, app, actorID),
		StageID:   app.CurrentStageID,
	}
}

// CommentCreated, CommentUpdated, CommentReplied and CommentDeleted record
// the comment thread actions on an application.
type CommentCreated struct{ base }

func (CommentCreated) Type() int            { return TypeCommentCreated }
func (CommentCreated) Key() string          { return "comment_created" }
func (CommentCreated) Narration() Narration { return UserToSystem }

type CommentUpdated struct{ base }

func (CommentUpdated) Type() int            { return TypeCommentUpdated }
func (CommentUpdated) Key() string          { return "comment_updated" }
func (CommentUpdated) Narration() Narration { return UserToSystem }

type CommentReplied struct{ base }

func (CommentReplied) Type() int            { return TypeCommentReplied }
func (CommentReplied) Key() string          { return "comment_replied" }
func (CommentReplied) Narration() Narration { return UserToSystem }

type CommentDeleted struct{ base }

func (CommentDeleted) Type() int            { return TypeCommentDeleted }
func (CommentDeleted) Key() string          { return "comment_deleted" }
func (CommentDeleted) Narration() Narration { return UserToSystem }

// NotificationSent records that the external dispatcher delivered a
// notification. The payload must name a registered resolver and recipient
// extension point so historical records stay verifiable.
type NotificationSent struct{ base }

func (NotificationSent) Type() int            { return TypeNotificationSent }
func (NotificationSent) Key() string          { return "notification_sent" }
func (NotificationSent) Narration() Narration { return SystemToUser }

func (NotificationSent) ValidInfo(info map[string]any) bool {
	if len(info) != 2 {
		return false
	}

	resolver, ok := info["resolver"].(string)
	if !ok || !KnownNotificationResolver(resolver) {
		return false
	}

	recipient, ok := info["recipient"].(string)
	if !ok || !KnownNotificationRecipient(recipient) {
		return false
	}

	return true
}

func (NotificationSent) Event(app *models.Application, actorID *int64, info map[string]any) eventbus.Event {
	resolver, _ := info["resolver"].(string)
	recipient, _ := info["recipient"].(string)

	return events.NotificationSent{
		BaseEvent: actorEvent(events.NotificationSentEvent, app, actorID),
		Resolver:  resolver,
		Recipient: recipient,
	}
}

// Uploaded records a file attached to the application.
type Uploaded struct{ base }

func (Uploaded) Type() int            { return TypeUploaded }
func (Uploaded) Key() string          { return "uploaded" }
func (Uploaded) Narration() Narration { return UserToSystem }

// Edited records the application form being changed outside a submission.
type Edited struct{ base }

func (Edited) Type() int            { return TypeEdited }
func (Edited) Key() string          { return "edited" }
func (Edited) Narration() Narration { return UserToSystem }

// ApprovalsReset records collected approvals being invalidated when a stage
// restarts.
type ApprovalsReset struct{ base }

func (ApprovalsReset) Type() int            { return TypeApprovalsReset }
func (ApprovalsReset) Key() string          { return "approvals_reset" }
func (ApprovalsReset) Narration() Narration { return SystemToSystem }

func (ApprovalsReset) Event(app *models.Application, actorID *int64, _ map[string]any) eventbus.Event {
	return events.ApplicationApprovalsReset{
		BaseEvent: actorEvent(events.ApplicationApprovalsResetEvent, app, actorID),
		StageID:   app.CurrentStageID,
	}
}

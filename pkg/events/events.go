// Package events defines event types and structures for application lifecycle notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Kafka topic for application lifecycle events.
const Topic = "approvalflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	ApplicationCreatedEvent        EventType = "application.created"
	ApplicationSubmittedEvent      EventType = "application.submitted"
	ApplicationStageStartedEvent   EventType = "application.stage.started"
	ApplicationLevelStartedEvent   EventType = "application.level.started"
	ApplicationApprovalsResetEvent EventType = "application.approvals.reset"
	ApplicationCompletedEvent      EventType = "application.completed"
	ApplicationWithdrawnEvent      EventType = "application.withdrawn"
	NotificationSentEvent          EventType = "notification.sent"
)

type BaseEvent struct {
	ID            string         `json:"id"`
	Type          EventType      `json:"type"`
	Timestamp     time.Time      `json:"timestamp"`
	ApplicationID int64          `json:"application_id"`
	ActorUserID   *int64         `json:"actor_user_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, applicationID int64) BaseEvent {
	return BaseEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		Timestamp:     time.Now().UTC(),
		ApplicationID: applicationID,
		Metadata:      make(map[string]any),
	}
}

type ApplicationCreated struct {
	BaseEvent

	WorkflowVersionID int64 `json:"workflow_version_id"`
	StageID           int64 `json:"stage_id"`
}

func (e ApplicationCreated) GetType() EventType {
	return ApplicationCreatedEvent
}

type ApplicationSubmitted struct {
	BaseEvent

	StageID int64 `json:"stage_id"`
}

func (e ApplicationSubmitted) GetType() EventType {
	return ApplicationSubmittedEvent
}

type ApplicationStageStarted struct {
	BaseEvent

	StageID   int64  `json:"stage_id"`
	StageName string `json:"stage_name"`
}

func (e ApplicationStageStarted) GetType() EventType {
	return ApplicationStageStartedEvent
}

type ApplicationLevelStarted struct {
	BaseEvent

	StageID   int64  `json:"stage_id"`
	LevelID   int64  `json:"level_id"`
	LevelName string `json:"level_name"`
}

func (e ApplicationLevelStarted) GetType() EventType {
	return ApplicationLevelStartedEvent
}

// ApplicationApprovalsReset fires when a stage restarts and previously
// collected approvals are invalidated.
type ApplicationApprovalsReset struct {
	BaseEvent

	StageID int64 `json:"stage_id"`
}

func (e ApplicationApprovalsReset) GetType() EventType {
	return ApplicationApprovalsResetEvent
}

type ApplicationCompleted struct {
	BaseEvent

	StageID int64 `json:"stage_id"`
}

func (e ApplicationCompleted) GetType() EventType {
	return ApplicationCompletedEvent
}

type ApplicationWithdrawn struct {
	BaseEvent

	StageID int64 `json:"stage_id"`
}

func (e ApplicationWithdrawn) GetType() EventType {
	return ApplicationWithdrawnEvent
}

// NotificationSent records that an external dispatcher delivered a
// notification; the core only carries the typed payload.
type NotificationSent struct {
	BaseEvent

	Resolver  string `json:"resolver"`
	Recipient string `json:"recipient"`
}

func (e NotificationSent) GetType() EventType {
	return NotificationSentEvent
}

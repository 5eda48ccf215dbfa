package models

import "time"

// ApplicationActivity is one immutable entry of an application's audit
// trail. Records are created once and never mutated or deleted, except by
// cascading deletion of the parent application.
type ApplicationActivity struct {
	ID              int64          `json:"id"`
	ApplicationID   int64          `json:"application_id" validate:"required"`
	WorkflowStageID int64          `json:"workflow_stage_id"`
	ApprovalLevelID *int64         `json:"approval_level_id,omitempty"`
	ActivityType    int            `json:"activity_type"`
	UserID          *int64         `json:"user_id,omitempty"` // Nil for system-generated records
	Timestamp       time.Time      `json:"timestamp"`
	Info            map[string]any `json:"info,omitempty"` // Type-specific structured payload
}

// FromSystem reports whether the record has no acting user.
func (a *ApplicationActivity) FromSystem() bool {
	return a.UserID == nil
}

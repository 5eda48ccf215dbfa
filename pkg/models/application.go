package models

import (
	"fmt"
	"time"
)

// Application is a work item flowing through a workflow version.
type Application struct {
	ID                     int64      `json:"id"`
	WorkflowVersionID      int64      `json:"workflow_version_id" validate:"required"`
	AssignmentID           int64      `json:"assignment_id"`
	UserID                 int64      `json:"user_id"             validate:"required"`
	Title                  string     `json:"title"               validate:"required"`
	CurrentStageID         int64      `json:"current_stage_id"`
	CurrentApprovalLevelID *int64     `json:"current_approval_level_id,omitempty"`
	IsDraft                bool       `json:"is_draft"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
	Submitted              *time.Time `json:"submitted,omitempty"`
	Completed              *time.Time `json:"completed,omitempty"`
}

// InFlight reports whether the application still moves through its workflow.
func (a *Application) InFlight() bool {
	return a.Completed == nil
}

// CurrentState derives the transient state value object from the stored
// current-position fields, resolved against the given version.
func (a *Application) CurrentState(version *WorkflowVersion) (ApplicationState, error) {
	stage := version.StageByID(a.CurrentStageID)
	if stage == nil {
		return ApplicationState{}, fmt.Errorf("current stage %d not in workflow version %d", a.CurrentStageID, version.ID)
	}

	state := ApplicationState{Stage: stage}

	if a.CurrentApprovalLevelID != nil {
		level := stage.LevelByID(*a.CurrentApprovalLevelID)
		if level == nil {
			return ApplicationState{}, fmt.Errorf("current approval level %d not in stage %d", *a.CurrentApprovalLevelID, stage.ID)
		}

		state.ApprovalLevel = level
	}

	return state, nil
}

// SetState writes the state value object back onto the application's
// current-position fields.
func (a *Application) SetState(state ApplicationState) {
	a.CurrentStageID = state.Stage.ID

	if state.ApprovalLevel != nil {
		id := state.ApprovalLevel.ID
		a.CurrentApprovalLevelID = &id
	} else {
		a.CurrentApprovalLevelID = nil
	}
}

// ApplicationState is the (stage, approval level) pair describing an
// application's current position. It is derived from, and written back
// onto, the Application entity; it is never persisted directly.
type ApplicationState struct {
	Stage         *WorkflowStage `json:"stage"`
	ApprovalLevel *ApprovalLevel `json:"approval_level,omitempty"`
}

// Equal compares two states by stage and level identity.
func (s ApplicationState) Equal(other ApplicationState) bool {
	if (s.Stage == nil) != (other.Stage == nil) {
		return false
	}

	if s.Stage != nil && s.Stage.ID != other.Stage.ID {
		return false
	}

	if (s.ApprovalLevel == nil) != (other.ApprovalLevel == nil) {
		return false
	}

	if s.ApprovalLevel != nil && s.ApprovalLevel.ID != other.ApprovalLevel.ID {
		return false
	}

	return true
}

func (s ApplicationState) String() string {
	if s.Stage == nil {
		return "state()"
	}

	if s.ApprovalLevel == nil {
		return fmt.Sprintf("state(stage=%d)", s.Stage.ID)
	}

	return fmt.Sprintf("state(stage=%d level=%d)", s.Stage.ID, s.ApprovalLevel.ID)
}

// Assignment binds a workflow to an organisational target whose members may
// raise applications against it.
type Assignment struct {
	ID         int64     `json:"id"`
	WorkflowID int64     `json:"workflow_id" validate:"required"`
	Name       string    `json:"name"        validate:"required"`
	Status     Status    `json:"status"      validate:"required"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetStatus implements lifecycle.StatusBearer.
func (a *Assignment) GetStatus() Status { return a.Status }

// SetStatus implements lifecycle.StatusBearer.
func (a *Assignment) SetStatus(s Status) { a.Status = s }

// ApproverType distinguishes how an approver identifier is interpreted.
type ApproverType string

const (
	ApproverTypeUser         ApproverType = "user"
	ApproverTypeRelationship ApproverType = "relationship" // e.g. the applicant's manager
)

// Approver assigns a user or relationship as approver at one approval level
// of one assignment.
type Approver struct {
	ID              int64        `json:"id"`
	AssignmentID    int64        `json:"assignment_id"     validate:"required"`
	ApprovalLevelID int64        `json:"approval_level_id" validate:"required"`
	Type            ApproverType `json:"type"              validate:"required"`
	Identifier      int64        `json:"identifier"        validate:"required"`
	Active          bool         `json:"active"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// IsActive implements lifecycle.Activatable.
func (a *Approver) IsActive() bool { return a.Active }

// SetActive implements lifecycle.Activatable.
func (a *Approver) SetActive(active bool) { a.Active = active }

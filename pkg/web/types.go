package web

import (
	"github.com/lumenlms/approvalflow/pkg/models"
)

// CreateWorkflowRequest is the POST /workflows body.
type CreateWorkflowRequest struct {
	Name        string                  `json:"name"        validate:"required,min=3"`
	Description string                  `json:"description"`
	IDNumber    string                  `json:"id_number"`
	Stages      []*models.WorkflowStage `json:"stages"      validate:"required,min=1,dive,required"`
}

// CreateApplicationRequest is the POST /applications body.
type CreateApplicationRequest struct {
	WorkflowVersionID int64  `json:"workflow_version_id" validate:"required"`
	AssignmentID      int64  `json:"assignment_id"`
	UserID            int64  `json:"user_id"             validate:"required"`
	Title             string `json:"title"               validate:"required"`
	SourceID          *int64 `json:"source_id,omitempty"`
}

// ActorRequest carries the acting user for submit and withdraw calls.
type ActorRequest struct {
	ActorID int64 `json:"actor_id" validate:"required"`
}

// TransitionRequest is the POST /applications/:id/transition body. The
// transition field is a strategy keyword or a decimal stage id.
type TransitionRequest struct {
	Transition string `json:"transition" validate:"required"`
	ActorID    *int64 `json:"actor_id,omitempty"`
}

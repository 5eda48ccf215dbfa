package models

// StageType classifies what happens while an application sits in a stage.
type StageType string

const (
	StageTypeFormSubmission StageType = "form_submission" // Applicant fills in or revises the form
	StageTypeApprovals      StageType = "approvals"       // Ordered approval levels sign off
	StageTypeFinished       StageType = "finished"        // Terminal stage, no further transitions
)

// Transition keywords stored on interactions. A default transition is either
// one of these keywords or the decimal id of a specific target stage.
const (
	TransitionNext  = "NEXT"
	TransitionReset = "RESET"
)

// WorkflowStage is one ordered step in a workflow version.
type WorkflowStage struct {
	ID                int64               `json:"id"`
	WorkflowVersionID int64               `json:"workflow_version_id"`
	Name              string              `json:"name"           validate:"required"`
	Type              StageType           `json:"type"           validate:"required"`
	OrdinalNumber     int                 `json:"ordinal_number" validate:"min=1"`
	Active            bool                `json:"active"`
	ApprovalLevels    []*ApprovalLevel    `json:"approval_levels,omitempty"`
	Interactions      []*StageInteraction `json:"interactions,omitempty"`
}

// IsActive implements lifecycle.Activatable.
func (s *WorkflowStage) IsActive() bool { return s.Active }

// SetActive implements lifecycle.Activatable.
func (s *WorkflowStage) SetActive(active bool) { s.Active = active }

// InitialState returns the well-defined starting sub-state of this stage:
// the first approval level for approvals-type stages, the stage alone
// otherwise. Every stage transition lands here rather than at an arbitrary
// mid-stage position.
func (s *WorkflowStage) InitialState() ApplicationState {
	if s.Type == StageTypeApprovals && len(s.ApprovalLevels) > 0 {
		return ApplicationState{Stage: s, ApprovalLevel: s.ApprovalLevels[0]}
	}

	return ApplicationState{Stage: s}
}

// LevelByID returns the approval level with the given id, or nil.
func (s *WorkflowStage) LevelByID(id int64) *ApprovalLevel {
	for _, level := range s.ApprovalLevels {
		if level.ID == id {
			return level
		}
	}

	return nil
}

// LevelAfter returns the approval level following the given one in ordinal
// order, or nil when it is the last level of the stage.
func (s *WorkflowStage) LevelAfter(level *ApprovalLevel) *ApprovalLevel {
	for i, l := range s.ApprovalLevels {
		if l.ID == level.ID {
			if i+1 < len(s.ApprovalLevels) {
				return s.ApprovalLevels[i+1]
			}

			return nil
		}
	}

	return nil
}

// ApprovalLevel is an ordered sub-step within an approvals-type stage
// requiring sign-off before advancing.
type ApprovalLevel struct {
	ID              int64  `json:"id"`
	WorkflowStageID int64  `json:"workflow_stage_id"`
	Name            string `json:"name"           validate:"required"`
	OrdinalNumber   int    `json:"ordinal_number" validate:"min=1"`
	Active          bool   `json:"active"`
}

// IsActive implements lifecycle.Activatable.
func (l *ApprovalLevel) IsActive() bool { return l.Active }

// SetActive implements lifecycle.Activatable.
func (l *ApprovalLevel) SetActive(active bool) { l.Active = active }

// StageInteraction is a configured action available on a stage (approve,
// reject, withdraw, ...) together with the transition applied when the
// action is taken and no conditional transition overrides it.
type StageInteraction struct {
	ID                int64  `json:"id"`
	WorkflowStageID   int64  `json:"workflow_stage_id"`
	ActionCode        string `json:"action_code"        validate:"required"`
	DefaultTransition string `json:"default_transition" validate:"required"` // Keyword or decimal stage id
}

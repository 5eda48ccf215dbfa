package transition

import (
	"github.com/lumenlms/approvalflow/pkg/models"
)

const nextSortOrder = 20

// Next advances to the initial state of the stage following the current one
// in ordinal order.
type Next struct {
	version *models.WorkflowVersion
}

func NewNext(version *models.WorkflowVersion) *Next {
	return &Next{version: version}
}

// Resolve returns the following stage's initial state, or nil when the
// current stage is the last one.
func (n *Next) Resolve(current models.ApplicationState) *models.ApplicationState {
	following := n.version.StageAfter(current.Stage)
	if following == nil {
		return nil
	}

	state := following.InitialState()

	return &state
}

// Options offers a single "next stage" option iff a following stage exists.
func (n *Next) Options(stage *models.WorkflowStage) []Option {
	following := n.version.StageAfter(stage)
	if following == nil {
		return nil
	}

	return []Option{{
		Name:  "Next stage",
		Value: models.TransitionNext,
		Data:  map[string]any{"stage_id": following.ID, "stage_name": following.Name},
	}}
}

func (n *Next) SortOrder() int { return nextSortOrder }

func (n *Next) Field() string { return models.TransitionNext }

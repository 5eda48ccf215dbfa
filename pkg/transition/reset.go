package transition

import (
	"github.com/lumenlms/approvalflow/pkg/models"
)

const resetSortOrder = 30

// Reset restarts the current stage from its initial state, discarding any
// mid-stage progress such as a partially walked approval level sequence.
type Reset struct{}

func NewReset() *Reset {
	return &Reset{}
}

// Resolve returns the current stage's initial state. Applying it to a state
// already at the initial position yields the same state.
func (r *Reset) Resolve(current models.ApplicationState) *models.ApplicationState {
	state := current.Stage.InitialState()

	return &state
}

// Options offers a single "reset" option iff at least one interaction on the
// stage has RESET configured as its default transition.
func (r *Reset) Options(stage *models.WorkflowStage) []Option {
	for _, interaction := range stage.Interactions {
		if interaction.DefaultTransition == models.TransitionReset {
			return []Option{{
				Name:  "Reset stage",
				Value: models.TransitionReset,
			}}
		}
	}

	return nil
}

func (r *Reset) SortOrder() int { return resetSortOrder }

func (r *Reset) Field() string { return models.TransitionReset }

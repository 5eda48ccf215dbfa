package transition

import (
	"strconv"

	"github.com/lumenlms/approvalflow/pkg/models"
)

const stageJumpSortOrder = 40

// StageJump resolves to the initial state of one specific stage, ignoring
// the current state entirely. The target is fixed at construction time.
type StageJump struct {
	version *models.WorkflowVersion
	target  *models.WorkflowStage
}

func NewStageJump(version *models.WorkflowVersion, target *models.WorkflowStage) *StageJump {
	return &StageJump{version: version, target: target}
}

// Resolve returns the target stage's initial state regardless of where the
// application currently sits.
func (s *StageJump) Resolve(_ models.ApplicationState) *models.ApplicationState {
	state := s.target.InitialState()

	return &state
}

// Options offers one option per other stage in the version, excluding the
// stage the options are requested for. Each option's value is the decimal id
// of that stage.
func (s *StageJump) Options(stage *models.WorkflowStage) []Option {
	options := make([]Option, 0, len(s.version.Stages))

	for _, candidate := range s.version.Stages {
		if candidate.ID == stage.ID {
			continue
		}

		options = append(options, Option{
			Name:  candidate.Name,
			Value: strconv.FormatInt(candidate.ID, 10),
			Data:  map[string]any{"ordinal_number": candidate.OrdinalNumber},
		})
	}

	return options
}

func (s *StageJump) SortOrder() int { return stageJumpSortOrder }

func (s *StageJump) Field() string {
	return strconv.FormatInt(s.target.ID, 10)
}

package transition

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lumenlms/approvalflow/pkg/models"
)

// FromField reconstructs the resolver an interaction stored as its default
// transition. A purely numeric field is a stage jump to that stage id;
// anything else is matched case-insensitively against the named strategy
// keywords.
func FromField(version *models.WorkflowVersion, field string) (Resolver, error) {
	if id, err := strconv.ParseInt(field, 10, 64); err == nil {
		target := version.StageByID(id)
		if target == nil {
			return nil, fmt.Errorf("transition target stage %d not in workflow version %d: %w",
				id, version.ID, ErrUnknownTransitionCode)
		}

		return NewStageJump(version, target), nil
	}

	switch strings.ToUpper(field) {
	case models.TransitionNext:
		return NewNext(version), nil
	case models.TransitionReset:
		return NewReset(), nil
	}

	return nil, fmt.Errorf("transition keyword %q: %w", field, ErrUnknownTransitionCode)
}

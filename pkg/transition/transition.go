// Package transition implements the pluggable strategies computing an
// application's next state from its current one.
package transition

import (
	"errors"

	"github.com/lumenlms/approvalflow/pkg/models"
)

// ErrUnknownTransitionCode indicates a stored transition field named a
// keyword no registered strategy claims. A data-integrity error, never
// expected in a correctly deployed configuration.
var ErrUnknownTransitionCode = errors.New("unknown transition code")

// Resolver is one transition strategy. Resolve is a pure function of the
// current (stage, approval level) pair; it never touches persistence.
type Resolver interface {
	// Resolve computes the next state, or nil when no further transition
	// exists (the application is terminal).
	Resolve(current models.ApplicationState) *models.ApplicationState

	// Options enumerates the transitions offerable from the given stage
	// when a workflow designer configures an interaction.
	Options(stage *models.WorkflowStage) []Option

	// SortOrder ranks this strategy when options from several strategies
	// are presented together. Lower sorts first.
	SortOrder() int

	// Field returns the opaque serialization stored on interactions:
	// the strategy's canonical keyword, or a decimal stage id.
	Field() string
}

// Option is one offerable transition, as presented to a workflow designer.
type Option struct {
	Name  string         `json:"name"`
	Value string         `json:"value"` // Strategy keyword or decimal stage id
	Data  map[string]any `json:"data,omitempty"`
}

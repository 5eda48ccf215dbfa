package transition

import (
	"sort"

	"github.com/lumenlms/approvalflow/pkg/models"
)

// Provider aggregates the offerable transitions across every registered
// strategy. The composite list is what a workflow designer sees when
// configuring what happens after an interaction.
type Provider struct {
	resolvers []Resolver
}

// NewProvider builds a provider over the version's built-in strategies. The
// stage jump strategy enumerates targets itself, so any stage serves as its
// construction anchor.
func NewProvider(version *models.WorkflowVersion) *Provider {
	resolvers := []Resolver{
		NewNext(version),
		NewReset(),
	}

	if first := version.FirstStage(); first != nil {
		resolvers = append(resolvers, NewStageJump(version, first))
	}

	return &Provider{resolvers: resolvers}
}

// OptionsFor concatenates each strategy's options for the stage, strategies
// ordered by their fixed sort order.
func (p *Provider) OptionsFor(stage *models.WorkflowStage) []Option {
	ordered := make([]Resolver, len(p.resolvers))
	copy(ordered, p.resolvers)

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SortOrder() < ordered[j].SortOrder()
	})

	var options []Option
	for _, resolver := range ordered {
		options = append(options, resolver.Options(stage)...)
	}

	return options
}

package agent

import (
	"context"
	"fmt"

	"github.com/levelsub-zero/mace/pkg/sem"
	"github.com/levelsub-zero/mace/pkg/structures"
)

// GenericAgent is the R4 fallback: it never touches SEM and always
// succeeds with a low-confidence canned response.
type GenericAgent struct{}

func (GenericAgent) Run(_ context.Context, _ *sem.Service, percept structures.Percept) (structures.AgentOutput, error) {
	return structures.AgentOutput{
		AgentID:        "generic_agent",
		Text:           fmt.Sprintf("I don't have a specific handler for: %s", percept.Text),
		Confidence:     0.1,
		ReasoningTrace: "fallback agent, no specialized handling applied",
	}, nil
}

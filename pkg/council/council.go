// Package council implements the council collaborator contract:
// evaluate(agent_output) returns a CouncilVote deterministic in its
// input. Only the always-approve stub is in scope for this core; a
// scored, deliberative council is out of scope.
package council

import (
	"github.com/levelsub-zero/mace/pkg/determinism"
	"github.com/levelsub-zero/mace/pkg/structures"
)

// perfectScores is what the stub assigns to every dimension: correctness,
// relevance, safety, coherence, empathy.
var perfectScores = [5]float64{1.0, 1.0, 1.0, 1.0, 1.0}

// Council evaluates agent outputs. The only implementation in this core
// is Stub, which always approves.
type Council interface {
	Evaluate(det *determinism.Context, output structures.AgentOutput) (structures.CouncilVote, error)
}

// Stub always approves every output with perfect per-dimension scores.
// vote_id is still deterministic in (agent_id, output_text).
type Stub struct{}

func (Stub) Evaluate(det *determinism.Context, output structures.AgentOutput) (structures.CouncilVote, error) {
	return structures.NewCouncilVote(det, output.AgentID, output.Text, perfectScores, true, "stub_always_approve")
}

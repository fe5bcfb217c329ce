// Package agent defines the Agent collaborator contract — run(percept)
// returns an AgentOutput or raises, and is pure with respect to SEM reads
// via the capture-installed get_sem — and ships the four reference agents
// the router's cascade selects between. Agents are black boxes to the
// executor; only these reference implementations live in this module.
package agent

import (
	"context"

	"github.com/levelsub-zero/mace/pkg/sem"
	"github.com/levelsub-zero/mace/pkg/structures"
)

// Agent runs a percept to completion, reading and writing SEM only through
// the capture-installed svc so the executor can observe every access.
type Agent interface {
	Run(ctx context.Context, svc *sem.Service, percept structures.Percept) (structures.AgentOutput, error)
}

// TimeoutError is how an agent reports that it exceeded its budget; the
// executor classifies any error whose message contains "TIMEOUT" as
// severity warning.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string { return e.Message }

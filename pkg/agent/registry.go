package agent

import "github.com/levelsub-zero/mace/pkg/router"

// Registry maps the agent ids the router selects to their implementation.
type Registry map[string]Agent

// DefaultRegistry binds the router's four agent ids to the reference
// implementations in this package.
func DefaultRegistry() Registry {
	return Registry{
		router.AgentMath:      MathAgent{},
		router.AgentProfile:   ProfileAgent{},
		router.AgentKnowledge: KnowledgeAgent{},
		router.AgentGeneric:   GenericAgent{},
	}
}

// Package router implements the deterministic percept-to-agent mapping: a
// small ordered cascade of regex/phrase rules, each producing exactly one
// primary agent and a fixed explanation string.
package router

import (
	"regexp"
	"strings"

	"github.com/levelsub-zero/mace/pkg/determinism"
	"github.com/levelsub-zero/mace/pkg/structures"
)

const (
	AgentMath      = "math_agent"
	AgentProfile   = "profile_agent"
	AgentKnowledge = "knowledge_agent"
	AgentGeneric   = "generic_agent"
)

const (
	IntentMathOperation  = "math_operation"
	IntentProfileUpdate  = "profile_update"
	IntentKnowledgeQuery = "knowledge_query"
	IntentGeneric        = "generic"
)

var mathPattern = regexp.MustCompile(`^\s*\d+\s*[+\-*/^]\s*\d+\s*$`)

var profilePhrases = []string{"my name is", "i like", "i am", "my favorite", "what is my"}

var standaloneMy = regexp.MustCompile(`\bmy\b`)

var knowledgePrefixes = []string{"what is", "define", "who is"}

// rule is one cascade step: match reports whether text (already
// lowercased and trimmed) triggers this rule, and which feature keys it
// observed while deciding.
type rule struct {
	intent  string
	agent   string
	explain string
	match   func(text string) (bool, []string)
}

var cascade = []rule{
	{
		intent:  IntentMathOperation,
		agent:   AgentMath,
		explain: "matched_R1_math",
		match: func(text string) (bool, []string) {
			if mathPattern.MatchString(text) {
				return true, []string{"regex:math_operation"}
			}
			return false, nil
		},
	},
	{
		intent:  IntentProfileUpdate,
		agent:   AgentProfile,
		explain: "matched_R2_profile",
		match: func(text string) (bool, []string) {
			for _, phrase := range profilePhrases {
				if strings.Contains(text, phrase) {
					return true, []string{"phrase:" + phrase}
				}
			}
			if standaloneMy.MatchString(text) {
				return true, []string{"phrase:my"}
			}
			return false, nil
		},
	},
	{
		intent:  IntentKnowledgeQuery,
		agent:   AgentKnowledge,
		explain: "matched_R3_knowledge",
		match: func(text string) (bool, []string) {
			for _, prefix := range knowledgePrefixes {
				if strings.HasPrefix(text, prefix) {
					return true, []string{"prefix:" + prefix}
				}
			}
			return false, nil
		},
	},
}

// Route applies the cascade to percept.Text (case-folded for matching
// only) and returns a fully built RouterDecision selecting exactly one
// primary agent, plus the classified intent so the caller can stamp it
// onto the percept it persists.
func Route(det *determinism.Context, percept structures.Percept, seed string) (structures.RouterDecision, string, error) {
	normalized := strings.TrimSpace(strings.ToLower(percept.Text))

	for _, r := range cascade {
		if ok, features := r.match(normalized); ok {
			decision, err := structures.NewRouterDecision(det, percept, r.intent, r.agent, r.explain, features, seed)
			return decision, r.intent, err
		}
	}
	decision, err := structures.NewRouterDecision(det, percept, IntentGeneric, AgentGeneric, "matched_R4_fallback", nil, seed)
	return decision, IntentGeneric, err
}

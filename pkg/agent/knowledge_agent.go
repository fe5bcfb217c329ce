package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/levelsub-zero/mace/pkg/canonical"
	"github.com/levelsub-zero/mace/pkg/sem"
	"github.com/levelsub-zero/mace/pkg/structures"
)

var (
	defineWhatIs = regexp.MustCompile(`^(?:what is|define|who is) (.+?)\??$`)
)

// KnowledgeAgent answers "what is/define/who is" queries by first
// consulting a shared reference-knowledge SEM namespace, falling back to a
// canned "unknown" response when no fact has been recorded.
type KnowledgeAgent struct{}

func (KnowledgeAgent) Run(ctx context.Context, svc *sem.Service, percept structures.Percept) (structures.AgentOutput, error) {
	text := strings.TrimSpace(strings.ToLower(percept.Text))
	m := defineWhatIs.FindStringSubmatch(text)
	if m == nil {
		return structures.AgentOutput{
			AgentID:        "knowledge_agent",
			Text:           "I don't have a definition for that.",
			Confidence:     0.2,
			ReasoningTrace: "no recognized knowledge pattern matched",
		}, nil
	}

	topic := canonical.Key(m[1])
	key := fmt.Sprintf("knowledge/reference/%s/definition", topic)
	res, err := svc.GetSem(ctx, key)
	if err != nil {
		return structures.AgentOutput{}, fmt.Errorf("knowledge_agent: get_sem %q: %w", key, err)
	}
	if !res.Exists {
		return structures.AgentOutput{
			AgentID:        "knowledge_agent",
			Text:           fmt.Sprintf("I don't have a definition for %s yet.", m[1]),
			Confidence:     0.3,
			ReasoningTrace: fmt.Sprintf("miss on %s via get_sem", key),
		}, nil
	}

	text2, ok := res.Value.(string)
	if !ok {
		text2 = fmt.Sprintf("%v", res.Value)
	}
	return structures.AgentOutput{
		AgentID:        "knowledge_agent",
		Text:           text2,
		Confidence:     0.85,
		ReasoningTrace: fmt.Sprintf("read %s via get_sem", key),
	}, nil
}

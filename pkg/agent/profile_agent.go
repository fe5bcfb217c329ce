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

// profileUserID is the single fixed profile namespace this reference
// agent writes under; multi-user session binding is out of scope for the
// core.
const profileUserID = "user_123"

var (
	writePattern = regexp.MustCompile(`^(?:remember )?my ([a-z0-9_]+) is (.+)$`)
	readPattern  = regexp.MustCompile(`^what is my ([a-z0-9_]+)\??$`)
	likePattern  = regexp.MustCompile(`^i like (.+)$`)
	amPattern    = regexp.MustCompile(`^i am (.+)$`)
)

// ProfileAgent persists and recalls simple user-profile facts under
// user/profile/{profileUserID}/{field} canonical keys.
type ProfileAgent struct{}

func (ProfileAgent) Run(ctx context.Context, svc *sem.Service, percept structures.Percept) (structures.AgentOutput, error) {
	text := strings.TrimSpace(strings.ToLower(percept.Text))

	if m := readPattern.FindStringSubmatch(text); m != nil {
		return recall(ctx, svc, canonical.Key(m[1]))
	}
	if m := writePattern.FindStringSubmatch(text); m != nil {
		return store(ctx, svc, canonical.Key(m[1]), strings.TrimSpace(m[2]))
	}
	if m := likePattern.FindStringSubmatch(text); m != nil {
		return store(ctx, svc, "likes", strings.TrimSpace(m[1]))
	}
	if m := amPattern.FindStringSubmatch(text); m != nil {
		return store(ctx, svc, "identity", strings.TrimSpace(m[1]))
	}

	return structures.AgentOutput{
		AgentID:        "profile_agent",
		Text:           "I could not find a profile fact to store or recall in that.",
		Confidence:     0.2,
		ReasoningTrace: "no recognized profile pattern matched",
	}, nil
}

func profileKey(field string) string {
	return fmt.Sprintf("user/profile/%s/%s", profileUserID, field)
}

func store(ctx context.Context, svc *sem.Service, field, value string) (structures.AgentOutput, error) {
	key := profileKey(field)
	res := svc.PutSem(ctx, key, value, "profile_agent")
	if !res.Success {
		return structures.AgentOutput{}, fmt.Errorf("profile_agent: put_sem %q: %s", key, res.Error)
	}
	return structures.AgentOutput{
		AgentID:        "profile_agent",
		Text:           fmt.Sprintf("Stored %s = %s", field, value),
		Confidence:     0.95,
		ReasoningTrace: fmt.Sprintf("wrote %s via put_sem", key),
	}, nil
}

func recall(ctx context.Context, svc *sem.Service, field string) (structures.AgentOutput, error) {
	key := profileKey(field)
	res, err := svc.GetSem(ctx, key)
	if err != nil {
		return structures.AgentOutput{}, fmt.Errorf("profile_agent: get_sem %q: %w", key, err)
	}
	if !res.Exists {
		return structures.AgentOutput{
			AgentID:        "profile_agent",
			Text:           fmt.Sprintf("I don't know your %s yet.", field),
			Confidence:     0.3,
			ReasoningTrace: fmt.Sprintf("miss on %s via get_sem", key),
		}, nil
	}
	text, ok := res.Value.(string)
	if !ok {
		text = fmt.Sprintf("%v", res.Value)
	}
	return structures.AgentOutput{
		AgentID:        "profile_agent",
		Text:           text,
		Confidence:     0.9,
		ReasoningTrace: fmt.Sprintf("read %s via get_sem", key),
	}, nil
}

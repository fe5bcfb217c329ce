package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelsub-zero/mace/pkg/determinism"
	"github.com/levelsub-zero/mace/pkg/structures"
)

func buildPercept(t *testing.T, text string) structures.Percept {
	t.Helper()
	det := determinism.NewContext()
	det.InitSeed("seed")
	p, err := structures.NewPercept(det, text, "")
	require.NoError(t, err)
	return p
}

func TestRoute_Math(t *testing.T) {
	det := determinism.NewContext()
	det.InitSeed("golden")
	p := buildPercept(t, "2 + 2")

	decision, intent, err := Route(det, p, "golden")
	require.NoError(t, err)
	assert.Equal(t, IntentMathOperation, intent)
	assert.Equal(t, []string{AgentMath}, decision.SelectedAgents)
	assert.Equal(t, "matched_R1_math", decision.Explain)
}

func TestRoute_MathRejectsNonMatchingText(t *testing.T) {
	det := determinism.NewContext()
	det.InitSeed("golden")
	p := buildPercept(t, "2 plus 2 please")
	_, intent, err := Route(det, p, "golden")
	require.NoError(t, err)
	assert.NotEqual(t, IntentMathOperation, intent)
}

func TestRoute_ProfileUpdate(t *testing.T) {
	det := determinism.NewContext()
	det.InitSeed("S1")
	p := buildPercept(t, "remember my favorite_color is blue")

	decision, intent, err := Route(det, p, "S1")
	require.NoError(t, err)
	assert.Equal(t, IntentProfileUpdate, intent)
	assert.Equal(t, []string{AgentProfile}, decision.SelectedAgents)
	assert.Equal(t, "matched_R2_profile", decision.Explain)
}

func TestRoute_ProfileStandaloneMy(t *testing.T) {
	det := determinism.NewContext()
	det.InitSeed("S1")
	p := buildPercept(t, "this is my thing")
	_, intent, err := Route(det, p, "S1")
	require.NoError(t, err)
	assert.Equal(t, IntentProfileUpdate, intent)
}

func TestRoute_KnowledgeQuery(t *testing.T) {
	det := determinism.NewContext()
	det.InitSeed("S2")
	p := buildPercept(t, "what is my favorite_color")

	// "what is my" matches the profile rule first since it is earlier in
	// the cascade and more specific than the bare knowledge prefix.
	decision, intent, err := Route(det, p, "S2")
	require.NoError(t, err)
	assert.Equal(t, IntentProfileUpdate, intent)
	assert.Equal(t, []string{AgentProfile}, decision.SelectedAgents)

	p2 := buildPercept(t, "what is the capital of france")
	decision2, intent2, err := Route(det, p2, "S2")
	require.NoError(t, err)
	assert.Equal(t, IntentKnowledgeQuery, intent2)
	assert.Equal(t, []string{AgentKnowledge}, decision2.SelectedAgents)
	assert.Equal(t, "matched_R3_knowledge", decision2.Explain)
}

func TestRoute_GenericFallback(t *testing.T) {
	det := determinism.NewContext()
	det.InitSeed("S3")
	p := buildPercept(t, "the sky is blue today")

	decision, intent, err := Route(det, p, "S3")
	require.NoError(t, err)
	assert.Equal(t, IntentGeneric, intent)
	assert.Equal(t, []string{AgentGeneric}, decision.SelectedAgents)
	assert.Equal(t, "matched_R4_fallback", decision.Explain)
}

func TestRoute_ExactlyOnePrimaryAgent(t *testing.T) {
	det := determinism.NewContext()
	det.InitSeed("S4")
	for _, text := range []string{"2+2", "my name is bob", "define entropy", "banana"} {
		p := buildPercept(t, text)
		decision, _, err := Route(det, p, "S4")
		require.NoError(t, err)
		assert.Len(t, decision.SelectedAgents, 1)
	}
}

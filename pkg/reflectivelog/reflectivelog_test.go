package reflectivelog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelsub-zero/mace/pkg/structures"
)

type fakeKeys struct {
	secrets map[string]string
}

func (f *fakeKeys) Resolve(keyID string) (string, error) {
	return f.secrets[keyID], nil
}

func sampleEntry() *structures.ReflectiveLogEntry {
	return &structures.ReflectiveLogEntry{
		LogID:     "abc123",
		Timestamp: "2025-01-01T00:00:01Z",
		Percept:   structures.Percept{PerceptID: "p1", Text: "2 + 2"},
		RouterDecision: structures.RouterDecision{
			DecisionID: "d1",
		},
		FinalOutput: structures.FinalOutput{Text: "4", Confidence: 1.0},
	}
}

func TestSign_IsDeterministicForSamePayload(t *testing.T) {
	keys := &fakeKeys{secrets: map[string]string{"k1": "secret"}}
	w := NewWriter(nil, keys, "k1")

	a := sampleEntry()
	require.NoError(t, w.Sign(a))
	b := sampleEntry()
	require.NoError(t, w.Sign(b))

	assert.Equal(t, a.Signature, b.Signature)
	assert.Equal(t, "k1", a.SignatureKeyID)
	assert.Len(t, a.Signature, 64)
}

func TestSign_FlipsWhenSubpayloadFieldChanges(t *testing.T) {
	keys := &fakeKeys{secrets: map[string]string{"k1": "secret"}}
	w := NewWriter(nil, keys, "k1")

	a := sampleEntry()
	require.NoError(t, w.Sign(a))

	b := sampleEntry()
	b.FinalOutput.Text = "5"
	require.NoError(t, w.Sign(b))

	assert.NotEqual(t, a.Signature, b.Signature)
}

func TestSign_FailsWhenKeyResolutionFails(t *testing.T) {
	w := NewWriter(nil, failingKeys{}, "k1")
	err := w.Sign(sampleEntry())
	assert.Error(t, err)
}

type failingKeys struct{}

func (failingKeys) Resolve(string) (string, error) {
	return "", assertErr
}

var assertErr = &resolveError{"no key"}

type resolveError struct{ msg string }

func (e *resolveError) Error() string { return e.msg }

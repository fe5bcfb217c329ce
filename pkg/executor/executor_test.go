package executor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelsub-zero/mace/pkg/agent"
	"github.com/levelsub-zero/mace/pkg/artifact"
	"github.com/levelsub-zero/mace/pkg/council"
	"github.com/levelsub-zero/mace/pkg/determinism"
	"github.com/levelsub-zero/mace/pkg/governance"
	"github.com/levelsub-zero/mace/pkg/sem"
	"github.com/levelsub-zero/mace/pkg/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type fakeStore struct {
	data map[string][]byte
	ts   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}, ts: map[string]string{}}
}

func (f *fakeStore) IsSandbox() bool { return false }

func (f *fakeStore) Get(_ context.Context, key string) ([]byte, string, bool, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, "", false, nil
	}
	return v, f.ts[key], true, nil
}

func (f *fakeStore) Put(_ context.Context, key string, blob []byte, timestamp string) error {
	f.data[key] = blob
	f.ts[key] = timestamp
	return nil
}

func newTestExecutor(t *testing.T, store sem.Store) *Executor {
	t.Helper()
	det := determinism.NewContext()
	journal := sem.NewJournal(t.TempDir() + "/journal.jsonl")
	t.Cleanup(func() { _ = journal.Close() })
	svc := sem.NewService(store, det, governance.NewBlocklistPolicy(nil), journal)
	artifacts, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)
	return New(det, svc, agent.DefaultRegistry(), council.Stub{}, artifacts, governance.NewStaticKillSwitch(), nil)
}

func TestExecute_MathScenario(t *testing.T) {
	exec := newTestExecutor(t, newFakeStore())
	seed := "golden"

	final, entry, err := exec.Execute(context.Background(), "2 + 2", "", &seed, false)
	require.NoError(t, err)
	assert.Equal(t, "4", final.Text)
	assert.Equal(t, "matched_R1_math", entry.RouterDecision.Explain)
	assert.Empty(t, entry.EvidenceItems)
	assert.Empty(t, entry.MemoryWrites)
	assert.Equal(t, seed, entry.RandomSeed)
}

func TestExecute_ProfileWriteScenario(t *testing.T) {
	exec := newTestExecutor(t, newFakeStore())
	seed := "S1"

	final, entry, err := exec.Execute(context.Background(), "remember my favorite_color is blue", "", &seed, false)
	require.NoError(t, err)
	assert.Contains(t, final.Text, "Stored favorite_color = blue")
	require.Len(t, entry.MemoryWrites, 1)
	assert.Equal(t, "user/profile/user_123/favorite_color", entry.MemoryWrites[0])
}

func TestExecute_ProfileReadScenario(t *testing.T) {
	store := newFakeStore()
	exec := newTestExecutor(t, store)

	writeSeed := "S1"
	_, _, err := exec.Execute(context.Background(), "remember my favorite_color is blue", "", &writeSeed, false)
	require.NoError(t, err)

	readSeed := "S2"
	final, entry, err := exec.Execute(context.Background(), "what is my favorite_color", "", &readSeed, false)
	require.NoError(t, err)
	assert.Equal(t, "blue", final.Text)
	require.Len(t, entry.EvidenceItems, 1)
	assert.Equal(t, "user/profile/user_123/favorite_color", entry.EvidenceItems[0].Source.Reference)
	assert.Equal(t, "blue", entry.EvidenceItems[0].Content.Structured)
}

func TestExecute_Deterministic_SameSeedSameOutput(t *testing.T) {
	seed := "golden"
	a, entryA, err := newTestExecutor(t, newFakeStore()).Execute(context.Background(), "2 + 2", "", &seed, false)
	require.NoError(t, err)
	b, entryB, err := newTestExecutor(t, newFakeStore()).Execute(context.Background(), "2 + 2", "", &seed, false)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, entryA.LogID, entryB.LogID)
	assert.Equal(t, entryA.Percept.PerceptID, entryB.Percept.PerceptID)
}

func TestExecute_KillSwitchActiveFailsEntireCall(t *testing.T) {
	det := determinism.NewContext()
	journal := sem.NewJournal(t.TempDir() + "/journal.jsonl")
	t.Cleanup(func() { _ = journal.Close() })
	svc := sem.NewService(newFakeStore(), det, governance.NewBlocklistPolicy(nil), journal)
	artifacts, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)

	killSwitch := governance.NewStaticKillSwitch()
	killSwitch.Activate("maintenance", "ops")

	exec := New(det, svc, agent.DefaultRegistry(), council.Stub{}, artifacts, killSwitch, nil)
	seed := "golden"
	_, _, err = exec.Execute(context.Background(), "2 + 2", "", &seed, false)
	require.Error(t, err)

	var kserr *KillSwitchActiveError
	require.ErrorAs(t, err, &kserr)
	assert.Equal(t, "maintenance", kserr.Reason)
}

func TestExecute_SeedChainingWithoutCallerSeed(t *testing.T) {
	exec := newTestExecutor(t, newFakeStore())
	final, entry, err := exec.Execute(context.Background(), "2 + 2", "", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "4", final.Text)
	assert.NotEmpty(t, entry.RandomSeed)
	assert.Len(t, entry.RandomSeed, 64)
}

func TestExecute_AgentFailureProducesErrorEventAndFallback(t *testing.T) {
	exec := newTestExecutor(t, newFakeStore())
	seed := "golden"
	// Division by zero makes math_agent return an error.
	final, entry, err := exec.Execute(context.Background(), "5 / 0", "", &seed, false)
	require.NoError(t, err)
	assert.Equal(t, 0.0, final.Confidence)
	require.Len(t, entry.Errors, 1)
	assert.Equal(t, "error", string(entry.Errors[0].Severity))
}

func TestExecute_TelemetryCountsRequestsAndAgentFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, err := telemetry.NewCounters("derc_test", reg)
	require.NoError(t, err)

	exec := newTestExecutor(t, newFakeStore()).WithTelemetry(counters)
	seed := "golden"

	_, _, err = exec.Execute(context.Background(), "2 + 2", "", &seed, false)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutilCounterValue(t, counters.RequestsTotal()))
	assert.Equal(t, float64(0), testutilCounterValue(t, counters.AgentFailuresTotal()))

	seed2 := "golden2"
	_, _, err = exec.Execute(context.Background(), "5 / 0", "", &seed2, false)
	require.NoError(t, err)
	assert.Equal(t, float64(2), testutilCounterValue(t, counters.RequestsTotal()))
	assert.Equal(t, float64(1), testutilCounterValue(t, counters.AgentFailuresTotal()))
}

func TestExecute_TelemetryCountsKillSwitchBlocked(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, err := telemetry.NewCounters("derc_test2", reg)
	require.NoError(t, err)

	det := determinism.NewContext()
	journal := sem.NewJournal(t.TempDir() + "/journal.jsonl")
	t.Cleanup(func() { _ = journal.Close() })
	svc := sem.NewService(newFakeStore(), det, governance.NewBlocklistPolicy(nil), journal)
	artifacts, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)

	killSwitch := governance.NewStaticKillSwitch()
	killSwitch.Activate("maintenance", "operator")
	exec := New(det, svc, agent.DefaultRegistry(), council.Stub{}, artifacts, killSwitch, nil).WithTelemetry(counters)

	_, _, err = exec.Execute(context.Background(), "2 + 2", "", nil, false)
	require.Error(t, err)
	assert.Equal(t, float64(1), testutilCounterValue(t, counters.KillSwitchBlocked()))
	assert.Equal(t, float64(0), testutilCounterValue(t, counters.RequestsTotal()))
}

func testutilCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

package sem

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/levelsub-zero/mace/pkg/determinism"
	"github.com/levelsub-zero/mace/pkg/governance"
	"github.com/levelsub-zero/mace/pkg/telemetry"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// memStore is a trivial in-memory Store used to unit test Service without
// a database, favoring a fake over a mock for a simple storage
// collaborator.
type memStore struct {
	sandbox bool
	data    map[string][]byte
	ts      map[string]string
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ts: map[string]string{}}
}

func (m *memStore) IsSandbox() bool { return m.sandbox }

func (m *memStore) Get(_ context.Context, key string) ([]byte, string, bool, error) {
	v, ok := m.data[key]
	if !ok {
		return nil, "", false, nil
	}
	return v, m.ts[key], true, nil
}

func (m *memStore) Put(_ context.Context, key string, blob []byte, timestamp string) error {
	m.data[key] = blob
	m.ts[key] = timestamp
	return nil
}

func newTestService(t *testing.T, store Store) (*Service, *Journal) {
	t.Helper()
	det := determinism.NewContext()
	det.InitSeed("test-seed")
	journal := NewJournal(t.TempDir() + "/journal.jsonl")
	t.Cleanup(func() { _ = journal.Close() })
	svc := NewService(store, det, governance.NewBlocklistPolicy(nil), journal)
	return svc, journal
}

func TestPutSem_InvalidKeyFormat(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	res := svc.PutSem(context.Background(), "not-four-segments", "v", "test")
	assert.False(t, res.Success)
	assert.Equal(t, ErrInvalidKeyFormat, res.Error)
}

func TestPutSem_PolicyBlocked(t *testing.T) {
	store := newMemStore()
	det := determinism.NewContext()
	det.InitSeed("seed")
	svc := NewService(store, det, governance.NewBlocklistPolicy([]string{"user/profile/"}), nil)

	res := svc.PutSem(context.Background(), "user/profile/user_123/name", "alice", "test")
	assert.False(t, res.Success)
	assert.Equal(t, ErrPolicyBlocked, res.Error)
}

func TestPutSem_PrivacyBlocked_SSN(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	res := svc.PutSem(context.Background(), "user/profile/user_123/ssn", "123-45-6789", "test")
	assert.False(t, res.Success)
	assert.Equal(t, ErrPrivacyBlocked, res.Error)
}

func TestPutSem_PrivacyBlocked_CardNumber(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	res := svc.PutSem(context.Background(), "user/profile/user_123/note", "4111 1111 1111 1111", "test")
	assert.False(t, res.Success)
	assert.Equal(t, ErrPrivacyBlocked, res.Error)
}

func TestPutSem_SuccessPersistsToStore(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(t, store)

	res := svc.PutSem(context.Background(), "user/profile/user_123/name", "alice", "test_agent")
	require.True(t, res.Success)
	require.NotEmpty(t, res.LastUpdated)
	assert.Contains(t, store.data, "user/profile/user_123/name")
}

func TestPutSem_SandboxDoesNotJournal(t *testing.T) {
	store := &memStore{sandbox: true, data: map[string][]byte{}, ts: map[string]string{}}
	det := determinism.NewContext()
	det.InitSeed("seed")
	svc := NewService(store, det, nil, nil) // nil journal: sandbox must never need it

	res := svc.PutSem(context.Background(), "user/profile/user_123/name", "alice", "test")
	assert.True(t, res.Success)
}

func TestGetSem_Miss(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	res, err := svc.GetSem(context.Background(), "user/profile/user_123/name")
	require.NoError(t, err)
	assert.False(t, res.Exists)
}

func TestGetSem_HitRoundTrips(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	key := "user/profile/user_123/name"

	put := svc.PutSem(context.Background(), key, "alice", "test")
	require.True(t, put.Success)

	res, err := svc.GetSem(context.Background(), key)
	require.NoError(t, err)
	require.True(t, res.Exists)
	assert.Equal(t, "alice", res.Value)
	assert.Equal(t, put.LastUpdated, res.LastUpdated)
}

func TestCapture_RecordsReadsAndWrites(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	ctx := context.Background()
	key := "user/profile/user_123/name"

	cap := svc.StartCapture()
	_, err := svc.GetSem(ctx, key) // miss, recorded
	require.NoError(t, err)
	svc.PutSem(ctx, key, "alice", "test")
	_, err = svc.GetSem(ctx, key) // hit, recorded
	require.NoError(t, err)
	drained := svc.StopCapture()

	require.Same(t, cap, drained)
	assert.Equal(t, []string{key}, drained.Keys())
	assert.Equal(t, []string{key}, drained.Writes)
	assert.True(t, drained.Values[key].Exists)
}

func TestPutSem_KeyFormatAcceptsAllowedSegments(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	for _, key := range []string{
		"user/profile/user_123/name",
		"agent/knowledge/topic-area/fact",
		"system/config/feature_flag/enabled",
	} {
		res := svc.PutSem(context.Background(), key, "v", "test")
		assert.Truef(t, res.Success, "expected %q to be accepted", key)
	}
}

func TestPutSem_KeyFormatRejectsWrongSegmentCount(t *testing.T) {
	svc, _ := newTestService(t, newMemStore())
	for _, key := range []string{
		"too/few/segments",
		"way/too/many/segments/here",
		"Upper/Case/Not/Allowed",
		strings.Repeat("a", 70) + "/b/c/d",
	} {
		res := svc.PutSem(context.Background(), key, "v", "test")
		assert.Falsef(t, res.Success, "expected %q to be rejected", key)
		assert.Equal(t, ErrInvalidKeyFormat, res.Error)
	}
}

func TestPutSem_TelemetryCountsSuccessAndBlocked(t *testing.T) {
	reg := prometheus.NewRegistry()
	counters, err := telemetry.NewCounters("sem_test", reg)
	require.NoError(t, err)

	svc, _ := newTestService(t, newMemStore())
	svc.WithTelemetry(counters)

	res := svc.PutSem(context.Background(), "user/profile/user_123/name", "ok", "test")
	require.True(t, res.Success)
	assert.Equal(t, float64(1), counterValue(t, counters.SEMWritesTotal()))
	assert.Equal(t, float64(0), counterValue(t, counters.SEMWritesBlocked()))

	res = svc.PutSem(context.Background(), "bad key", "v", "test")
	require.False(t, res.Success)
	assert.Equal(t, float64(1), counterValue(t, counters.SEMWritesTotal()))
	assert.Equal(t, float64(1), counterValue(t, counters.SEMWritesBlocked()))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

package determinism

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrement_FirstCallReturnsOne(t *testing.T) {
	ctx := NewContext()
	assert.Equal(t, uint64(1), ctx.Increment("id"))
	assert.Equal(t, uint64(2), ctx.Increment("id"))
	assert.Equal(t, uint64(1), ctx.Increment("sem_write"))
}

func TestInitSeed_ResetsCounters(t *testing.T) {
	ctx := NewContext()
	ctx.InitSeed("seed-a")
	ctx.Increment("id")
	ctx.Increment("id")

	ctx.InitSeed("seed-b")
	assert.Equal(t, uint64(1), ctx.Increment("id"), "counter reset invariant: first increment after InitSeed must return 1")
}

func TestDeriveID_DeterministicForSameInputs(t *testing.T) {
	ctx := NewContext()
	ctx.InitSeed("golden")
	c := uint64(1)

	id1, err := ctx.DeriveID("percept", "2 + 2", &c)
	require.NoError(t, err)
	id2, err := ctx.DeriveID("percept", "2 + 2", &c)
	require.NoError(t, err)

	assert.Equal(t, id1, id2)
	assert.Len(t, id1, 64)
}

func TestDeriveID_DifferentCounterDifferentID(t *testing.T) {
	ctx := NewContext()
	ctx.InitSeed("golden")
	c1, c2 := uint64(1), uint64(2)

	id1, err := ctx.DeriveID("percept", "x", &c1)
	require.NoError(t, err)
	id2, err := ctx.DeriveID("percept", "x", &c2)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2)
}

func TestDeriveID_UsesSharedIDCounterWhenNil(t *testing.T) {
	ctx := NewContext()
	ctx.InitSeed("golden")

	id1, err := ctx.DeriveID("ns", "payload", nil)
	require.NoError(t, err)
	id2, err := ctx.DeriveID("ns", "payload", nil)
	require.NoError(t, err)

	assert.NotEqual(t, id1, id2, "nil counter must advance the shared id counter each call")
}

func TestDeriveID_DeterministicModeFailsWithoutSeed(t *testing.T) {
	ctx := NewContext()
	ctx.SetMode(Deterministic)

	_, err := ctx.DeriveID("ns", "payload", nil)
	assert.ErrorIs(t, err, ErrNoSeed)
}

func TestDeriveID_NormalModeFallsBackWithoutSeed(t *testing.T) {
	ctx := NewContext()
	id, err := ctx.DeriveID("ns", "payload", nil)
	require.NoError(t, err)
	assert.Len(t, id, 64)
}

func TestDeriveTimestamp_DeterministicAndWithinSpan(t *testing.T) {
	ctx := NewContext()
	ctx.InitSeed("golden")
	c := uint64(1)

	ts1, err := ctx.DeriveTimestamp(&c)
	require.NoError(t, err)
	ts2, err := ctx.DeriveTimestamp(&c)
	require.NoError(t, err)
	assert.Equal(t, ts1, ts2)

	parsed, err := time.Parse(time.RFC3339, ts1)
	require.NoError(t, err)
	assert.True(t, !parsed.Before(baseEpoch))
}

func TestDeriveTimestamp_DeterministicModeRequiresCounter(t *testing.T) {
	ctx := NewContext()
	ctx.InitSeed("golden")
	ctx.SetMode(Deterministic)

	_, err := ctx.DeriveTimestamp(nil)
	assert.ErrorIs(t, err, ErrNoSeed)
}

func TestDeriveTimestamp_NormalModeWallClockWithoutCounter(t *testing.T) {
	ctx := NewContext()
	ts, err := ctx.DeriveTimestamp(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, ts)
}


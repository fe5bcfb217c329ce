package sem_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testdb "github.com/levelsub-zero/mace/test/database"

	"github.com/levelsub-zero/mace/pkg/sem"
)

func TestLiveStore_PutThenGetRoundTrips(t *testing.T) {
	client := testdb.NewTestClient(t)
	store := sem.NewLiveStore(client.DB())
	ctx := context.Background()

	err := store.Put(ctx, "user_profile/profile/user_123/favorite_color", []byte(`"blue"`), "2026-01-01T00:00:00Z")
	require.NoError(t, err)

	value, ts, ok, err := store.Get(ctx, "user_profile/profile/user_123/favorite_color")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `"blue"`, string(value))
	assert.Equal(t, "2026-01-01T00:00:00Z", ts)
}

func TestLiveStore_GetMissReturnsNotOK(t *testing.T) {
	client := testdb.NewTestClient(t)
	store := sem.NewLiveStore(client.DB())

	_, _, ok, err := store.Get(context.Background(), "user_profile/profile/user_123/nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLiveStore_PutOverwritesLastWriteWins(t *testing.T) {
	client := testdb.NewTestClient(t)
	store := sem.NewLiveStore(client.DB())
	ctx := context.Background()
	key := "user_profile/profile/user_123/favorite_color"

	require.NoError(t, store.Put(ctx, key, []byte(`"blue"`), "2026-01-01T00:00:00Z"))
	require.NoError(t, store.Put(ctx, key, []byte(`"red"`), "2026-01-02T00:00:00Z"))

	value, ts, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `"red"`, string(value))
	assert.Equal(t, "2026-01-02T00:00:00Z", ts)
}

func TestLiveStore_IsSandboxReportsFalse(t *testing.T) {
	client := testdb.NewTestClient(t)
	store := sem.NewLiveStore(client.DB())
	assert.False(t, store.IsSandbox())
}

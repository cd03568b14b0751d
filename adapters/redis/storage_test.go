package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xplist/core"
	"xplist/engine"
)

var _ engine.Storage = (*Store)(nil)

// newTestClient spins up a miniredis server and returns a client plus cleanup.
func newTestClient(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}
	return client, cleanup
}

func TestStore_AddXP(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()
	userID := core.UserID("test-user")

	total, err := store.AddXP(ctx, userID, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), total)

	total, err = store.AddXP(ctx, userID, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(75), total)

	state, err := store.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(75), state.TotalXP)
	assert.Equal(t, 0, state.Level)
}

func TestStore_AddXP_ZeroDelta(t *testing.T) {
	// This test doesn't need Redis connection
	store := &Store{}

	_, err := store.AddXP(context.Background(), "test-user", 0)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "delta cannot be zero")
}

func TestStore_AddXP_Overflow(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()

	_, err := store.AddXP(ctx, "big", 9223372036854775800)
	require.NoError(t, err)
	_, err = store.AddXP(ctx, "big", 100)
	assert.Error(t, err)

	state, err := store.GetState(ctx, "big")
	require.NoError(t, err)
	assert.Equal(t, int64(9223372036854775800), state.TotalXP)
}

func TestStore_SaveSnapshot(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()
	userID := core.UserID("snap")

	_, err := store.AddXP(ctx, userID, 120)
	require.NoError(t, err)

	// Warm the cache so the snapshot write has something to invalidate.
	_, err = store.GetState(ctx, userID)
	require.NoError(t, err)

	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err = store.SaveSnapshot(ctx, userID, core.UserState{
		UserID:         userID,
		TotalXP:        120,
		Level:          2,
		CurrentLevelXP: 20,
		XPToNextLevel:  150,
		Updated:        updated,
	})
	require.NoError(t, err)

	state, err := store.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, state.Level)
	assert.Equal(t, int64(20), state.CurrentLevelXP)
	assert.Equal(t, int64(150), state.XPToNextLevel)
	assert.True(t, state.Updated.Equal(updated))
}

func TestStore_SaveSnapshot_Stale(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()

	_, err := store.AddXP(ctx, "stale", 10)
	require.NoError(t, err)
	require.NoError(t, store.SaveSnapshot(ctx, "stale", core.UserState{TotalXP: 5, Level: 7}))

	state, err := store.GetState(ctx, "stale")
	require.NoError(t, err)
	assert.Equal(t, 0, state.Level)
	assert.Equal(t, int64(10), state.TotalXP)
}

func TestStore_GetState_NewUser(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)

	state, err := store.GetState(context.Background(), "new-user")
	require.NoError(t, err)
	assert.Equal(t, core.UserID("new-user"), state.UserID)
	assert.Equal(t, int64(0), state.TotalXP)
	assert.Equal(t, 0, state.Level)
}

func TestStore_GetState_CacheSkipsConcurrentWrite(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()
	userID := core.UserID("racer")

	_, err := store.AddXP(ctx, userID, 50)
	require.NoError(t, err)

	// state read before an award lands, cached after it
	state, version, err := store.buildStateFromKeys(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, int64(50), state.TotalXP)

	_, err = store.AddXP(ctx, userID, 50)
	require.NoError(t, err)

	cached, err := store.updateStateCache(ctx, userID, state, version)
	require.NoError(t, err)
	assert.False(t, cached)

	got, err := store.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.TotalXP)
}

func TestStore_GetState_CacheSkipsConcurrentSnapshot(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()
	userID := core.UserID("racer")

	_, err := store.AddXP(ctx, userID, 120)
	require.NoError(t, err)

	state, version, err := store.buildStateFromKeys(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 0, state.Level)

	require.NoError(t, store.SaveSnapshot(ctx, userID, core.UserState{
		TotalXP: 120, Level: 2, CurrentLevelXP: 20, XPToNextLevel: 150,
		Updated: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}))

	cached, err := store.updateStateCache(ctx, userID, state, version)
	require.NoError(t, err)
	assert.False(t, cached)

	got, err := store.GetState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Level)
}

func TestStore_GetState_CachesWhenCurrent(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()
	userID := core.UserID("steady")

	_, err := store.AddXP(ctx, userID, 30)
	require.NoError(t, err)

	_, err = store.GetState(ctx, userID)
	require.NoError(t, err)

	ttl := client.TTL(ctx, userStateKey(userID)).Val()
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, stateCacheTTL)

	cached, err := store.getCachedState(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), cached.TotalXP)
}

func TestStore_Tasks(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()
	userID := core.UserID("tasks")

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	reward := int64(50)
	second := core.Task{ID: "t2", UserID: userID, Title: "run", Difficulty: core.DifficultyHard, XPReward: &reward, CreatedAt: base.Add(time.Minute)}
	first := core.Task{ID: "t1", UserID: userID, Title: "read", Difficulty: core.DifficultyEasy, CreatedAt: base}
	require.NoError(t, store.CreateTask(ctx, second))
	require.NoError(t, store.CreateTask(ctx, first))

	list, err := store.ListTasks(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "t1", list[0].ID)
	assert.Equal(t, "t2", list[1].ID)

	done := base.Add(time.Hour)
	second.Completed = true
	second.CompletedAt = &done
	require.NoError(t, store.UpdateTask(ctx, second))

	got, err := store.GetTask(ctx, userID, "t2")
	require.NoError(t, err)
	assert.True(t, got.Completed)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(done))
	require.NotNil(t, got.XPReward)
	assert.Equal(t, int64(50), *got.XPReward)

	require.NoError(t, store.DeleteTask(ctx, userID, "t1"))
	list, err = store.ListTasks(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_TaskNotFound(t *testing.T) {
	client, cleanup := newTestClient(t)
	defer cleanup()

	store := NewWithClient(client)
	ctx := context.Background()

	_, err := store.GetTask(ctx, "nobody", "missing")
	assert.ErrorIs(t, err, core.ErrTaskNotFound)
	assert.ErrorIs(t, store.UpdateTask(ctx, core.Task{ID: "missing", UserID: "nobody"}), core.ErrTaskNotFound)
	assert.ErrorIs(t, store.DeleteTask(ctx, "nobody", "missing"), core.ErrTaskNotFound)
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "localhost:6379", config.Addr)
	assert.Equal(t, 10, config.PoolSize)
	assert.Equal(t, 5*time.Second, config.DialTimeout)
}

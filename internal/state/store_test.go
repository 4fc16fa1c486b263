package state_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/seekerlabs/seekerd/internal/state"
	"github.com/seekerlabs/seekerd/pkg/adapters/state/memory"
)

func newStore(t *testing.T) (*state.Store, *memory.Persister) {
	t.Helper()
	persister := memory.New()
	store, err := state.Open(context.Background(), persister, zap.NewNop())
	require.NoError(t, err)
	return store, persister
}

func TestStore_SetAndGetNestedPaths(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "profiles.u1.name", "Ada"))
	require.NoError(t, store.Set(ctx, "profiles.u1.links.github", "ada-dev"))

	v, ok := store.Get("profiles.u1.name")
	require.True(t, ok)
	assert.Equal(t, "Ada", v)

	v, ok = store.Get("profiles.u1.links.github")
	require.True(t, ok)
	assert.Equal(t, "ada-dev", v)

	_, ok = store.Get("profiles.u2.name")
	assert.False(t, ok)
	assert.Equal(t, "none", store.GetOr("profiles.u2.name", "none"))
}

func TestStore_SetReplacesScalarMidPath(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a.b", "scalar"))
	require.NoError(t, store.Set(ctx, "a.b.c", 1))

	v, ok := store.Get("a.b.c")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestStore_UpdateWritesParentBeforeChild(t *testing.T) {
	store, _ := newStore(t)

	err := store.Update(context.Background(), map[string]interface{}{
		"postings.p1.status": "matched",
		"postings.p1":        map[string]interface{}{"title": "Go Engineer"},
	})
	require.NoError(t, err)

	// "postings.p1" sorts before "postings.p1.status", so the status write
	// lands inside the map written by the parent path.
	v, ok := store.Get("postings.p1.status")
	require.True(t, ok)
	assert.Equal(t, "matched", v)
	v, ok = store.Get("postings.p1.title")
	require.True(t, ok)
	assert.Equal(t, "Go Engineer", v)
}

func TestStore_DeleteRemovesSubtree(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "profiles.u1.name", "Ada"))
	require.NoError(t, store.Set(ctx, "profiles.u1.links.github", "ada-dev"))

	removed, err := store.Delete(ctx, "profiles.u1")
	require.NoError(t, err)
	assert.True(t, removed)

	_, ok := store.Get("profiles.u1")
	assert.False(t, ok)
	_, ok = store.Get("profiles.u1.links.github")
	assert.False(t, ok, "descendants must be unreachable after a subtree delete")

	removed, err = store.Delete(ctx, "profiles.u1")
	require.NoError(t, err)
	assert.False(t, removed, "second delete reports a miss")
}

func TestStore_QueueIsFIFORegardlessOfPriority(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	for i, prio := range []int{1, 99, 5} {
		err := store.Enqueue(ctx, map[string]interface{}{
			"unit":     fmt.Sprintf("unit-%d", i),
			"priority": prio,
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.QueueSize())

	for i := 0; i < 3; i++ {
		item, ok, err := store.Dequeue(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("unit-%d", i), item["unit"],
			"items leave in arrival order, priority is carried but not honored")
		assert.NotEmpty(t, item["queued_at"])
	}

	_, ok, err := store.Dequeue(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_LogEvictsOldestBeyondCapacity(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	for i := 1; i <= 1001; i++ {
		err := store.AppendLog(ctx, "tester", fmt.Sprintf("op-%d", i), nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 1000, store.LogSize())

	logs := store.RecentLogs("", 1000)
	require.Len(t, logs, 1000)
	assert.Equal(t, "op-2", logs[0]["op"], "entry #1 was evicted")
	assert.Equal(t, "op-1001", logs[len(logs)-1]["op"])
}

func TestStore_RecentLogsFiltersAndWindows(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendLog(ctx, "scraper", "scrape_url", map[string]interface{}{"url": "x"}))
	require.NoError(t, store.AppendLog(ctx, "matcher", "match_postings", nil))
	require.NoError(t, store.AppendLog(ctx, "scraper", "add_source", nil))

	scraper := store.RecentLogs("scraper", 10)
	require.Len(t, scraper, 2)
	assert.Equal(t, "scrape_url", scraper[0]["op"])
	assert.Equal(t, "add_source", scraper[1]["op"])

	last := store.RecentLogs("", 2)
	require.Len(t, last, 2)
	assert.Equal(t, "match_postings", last[0]["op"])
	assert.Equal(t, "add_source", last[1]["op"])
}

func TestStore_EveryMutationWritesThrough(t *testing.T) {
	store, persister := newStore(t)
	ctx := context.Background()

	base := persister.Saves()
	require.NoError(t, store.Set(ctx, "a", 1))
	require.NoError(t, store.Enqueue(ctx, map[string]interface{}{"unit": "x"}))
	require.NoError(t, store.AppendLog(ctx, "x", "op", nil))
	_, _, err := store.Dequeue(ctx)
	require.NoError(t, err)

	assert.Equal(t, base+4, persister.Saves())
}

func TestStore_ReloadSeesPersistedTree(t *testing.T) {
	ctx := context.Background()
	persister := memory.New()

	first, err := state.Open(ctx, persister, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "profiles.u1.name", "Ada"))
	require.NoError(t, first.Enqueue(ctx, map[string]interface{}{"unit": "scraper", "priority": 3}))

	second, err := state.Open(ctx, persister, zap.NewNop())
	require.NoError(t, err)

	v, ok := second.Get("profiles.u1.name")
	require.True(t, ok)
	assert.Equal(t, "Ada", v)
	assert.Equal(t, 1, second.QueueSize())

	item, ok, err := second.Dequeue(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "scraper", item["unit"])
	assert.Equal(t, float64(3), item["priority"], "numbers come back as float64 after a reload")
}

func TestStore_SnapshotIsDeepCopy(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "profiles.u1.name", "Ada"))

	snap := store.Snapshot()
	snap["profiles"].(map[string]interface{})["u1"].(map[string]interface{})["name"] = "Eve"

	v, _ := store.Get("profiles.u1.name")
	assert.Equal(t, "Ada", v)
}

func TestStore_ResetRestoresDefaultTree(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "profiles.u1.name", "Ada"))
	require.NoError(t, store.Enqueue(ctx, map[string]interface{}{"unit": "x"}))
	require.NoError(t, store.Reset(ctx))

	_, ok := store.Get("profiles.u1")
	assert.False(t, ok)
	assert.Equal(t, 0, store.QueueSize())
	assert.Equal(t, "1.0", store.Metadata()["version"])
}

func TestStore_UnitStateRoundTrip(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	_, ok := store.UnitState("matcher")
	assert.False(t, ok)

	require.NoError(t, store.SetUnitState(ctx, "matcher", map[string]interface{}{"threshold": 80}))
	v, ok := store.UnitState("matcher")
	require.True(t, ok)
	assert.Equal(t, 80, v.(map[string]interface{})["threshold"])
}

type failingPersister struct {
	allow int
	saves int
}

func (f *failingPersister) Load(_ context.Context) (map[string]interface{}, error) {
	return nil, nil
}

func (f *failingPersister) Save(_ context.Context, _ map[string]interface{}) error {
	f.saves++
	if f.saves > f.allow {
		return errors.New("disk full")
	}
	return nil
}

func TestStore_PersistFailurePropagates(t *testing.T) {
	ctx := context.Background()
	store, err := state.Open(ctx, &failingPersister{allow: 1}, zap.NewNop())
	require.NoError(t, err)

	err = store.Set(ctx, "a", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

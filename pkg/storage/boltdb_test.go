package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Store = (*BoltStore)(nil)

func newTestStore(t *testing.T) (*BoltStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, dir
}

func TestNewBoltStoreCreatesFile(t *testing.T) {
	_, dir := newTestStore(t)

	_, err := os.Stat(filepath.Join(dir, DBFile))
	assert.NoError(t, err)
}

func TestNewBoltStoreMissingDir(t *testing.T) {
	_, err := NewBoltStore(filepath.Join(t.TempDir(), "missing", "dir"))
	assert.Error(t, err)
}

func TestWorkerGroups(t *testing.T) {
	store, _ := newTestStore(t)

	require.NoError(t, store.SaveWorkerGroup(types.WorkerGroup{Name: "etl", Addresses: []string{"a:1", "b:1"}}))
	require.NoError(t, store.SaveWorkerGroup(types.WorkerGroup{Name: "default"}))
	assert.Error(t, store.SaveWorkerGroup(types.WorkerGroup{}))

	group, err := store.GetWorkerGroup("etl")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "b:1"}, group.Addresses)

	groups, err := store.ListWorkerGroups()
	require.NoError(t, err)
	assert.Equal(t, []types.WorkerGroup{
		{Name: "default"},
		{Name: "etl", Addresses: []string{"a:1", "b:1"}},
	}, groups)

	require.NoError(t, store.SaveWorkerGroup(types.WorkerGroup{Name: "etl", Addresses: []string{"c:1"}}))
	group, err = store.GetWorkerGroup("etl")
	require.NoError(t, err)
	assert.Equal(t, []string{"c:1"}, group.Addresses, "save replaces")

	require.NoError(t, store.DeleteWorkerGroup("etl"))
	require.NoError(t, store.DeleteWorkerGroup("etl"))
	_, err = store.GetWorkerGroup("etl")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRuns(t *testing.T) {
	store, _ := newTestStore(t)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	older := &types.RunRecord{ID: "r1", Workflow: "etl", Mode: types.ModeFull, Status: "SUCCESS", StartedAt: start}
	newer := &types.RunRecord{
		ID:        "r2",
		Workflow:  "etl",
		Mode:      types.ModeForwardFromRecovery,
		Status:    "FAILURE",
		Failed:    []string{"load"},
		Blocked:   []string{"report"},
		StartedAt: start.Add(time.Hour),
	}
	require.NoError(t, store.SaveRun(older))
	require.NoError(t, store.SaveRun(newer))
	assert.Error(t, store.SaveRun(&types.RunRecord{}))
	assert.Error(t, store.SaveRun(nil))

	got, err := store.GetRun("r2")
	require.NoError(t, err)
	assert.Equal(t, []string{"load"}, got.Failed)
	assert.True(t, got.StartedAt.Equal(newer.StartedAt))

	runs, err := store.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].ID)
	assert.Equal(t, "r1", runs[1].ID)

	require.NoError(t, store.DeleteRun("r1"))
	_, err = store.GetRun("r1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	store, err := NewBoltStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.SaveWorkerGroup(types.WorkerGroup{Name: "etl", Addresses: []string{"a:1"}}))
	require.NoError(t, store.Close())

	reopened, err := NewBoltStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	groups, err := reopened.ListWorkerGroups()
	require.NoError(t, err)
	assert.Equal(t, []types.WorkerGroup{{Name: "etl", Addresses: []string{"a:1"}}}, groups)
}

package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/resident-scheduler/core/factory"
)

func records(now time.Time) []Record {
	return []Record{
		{RunID: "r1", Timestamp: now.Add(-2 * time.Hour), Block: 1, Status: "optimal", Assignments: 40},
		{RunID: "r2", Timestamp: now.Add(-time.Hour), Block: 2, Status: "infeasible", Binding: []string{"supervision"}},
		{RunID: "r3", Timestamp: now, Block: 2, Status: "optimal", Counts: map[string]int{"buddy": 3}},
	}
}

func exercise(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	for _, r := range records(now) {
		require.NoError(t, store.Append(ctx, r))
	}

	all, err := store.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r1", all[0].RunID)

	out, err := store.Query(ctx, Query{Block: 2, Status: "optimal"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 3, out[0].Counts["buddy"])

	out, err = store.Query(ctx, Query{Start: now.Add(-90 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, out, 2)

	out, err = store.Query(ctx, Query{RunID: "r2"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, []string{"supervision"}, out[0].Binding)
}

func TestJSONLStore(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exercise(t, store)
}

func TestRotatingJSONLStore(t *testing.T) {
	store, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "logs", "runs.jsonl"), 1, 2, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exercise(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exercise(t, store)
}

func TestNewStoreFromConfig(t *testing.T) {
	s, err := NewStore(factory.ModuleConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = NewStore(factory.ModuleConfig{Type: "sqlite", Conf: map[string]any{"path": filepath.Join(t.TempDir(), "x.db")}})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = NewStore(factory.ModuleConfig{Type: "postgres"})
	assert.Error(t, err)
}

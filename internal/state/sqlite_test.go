package state

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/flowcanvas/internal/api"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s := NewSQLiteStore(nil)
	require.NoError(t, s.Open(":memory:"))
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)

	id, err := s.StartRun(1, "transformation/3")
	require.NoError(t, err)
	require.NotZero(t, id)

	runs, err := s.ListRuns(1, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "running", runs[0].Status)
	assert.Equal(t, "transformation/3", runs[0].Target)
	assert.True(t, runs[0].CompletedAt.IsZero())

	require.NoError(t, s.FinishRun(id, "completed", "", 1500*time.Millisecond, 42))

	runs, err = s.ListRuns(1, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "completed", runs[0].Status)
	assert.Equal(t, 42, runs[0].Rows)
	assert.Equal(t, 1500*time.Millisecond, runs[0].Duration)
	assert.False(t, runs[0].CompletedAt.IsZero())
}

func TestListRunsOrderAndLimit(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.StartRun(1, "all")
		require.NoError(t, err)
	}
	_, err := s.StartRun(2, "join/1")
	require.NoError(t, err)

	runs, err := s.ListRuns(1, 3)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	// Newest first.
	assert.Greater(t, runs[0].ID, runs[1].ID)

	other, err := s.ListRuns(2, 10)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, "join/1", other[0].Target)
}

func TestFinishRunRecordsError(t *testing.T) {
	s := openTestStore(t)

	id, err := s.StartRun(1, "qualitative/9")
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(id, "failed", "column not found", time.Second, 0))

	runs, err := s.ListRuns(1, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "failed", runs[0].Status)
	assert.Equal(t, "column not found", runs[0].Error)
}

func TestLayoutCacheRoundTrip(t *testing.T) {
	s := openTestStore(t)

	missing, err := s.GetLayout(7)
	require.NoError(t, err)
	assert.Nil(t, missing)

	layout := &api.Layout{
		Nodes: []api.LayoutNode{
			{ID: "sheet-1", Type: "sheet", Position: api.Position{X: 10, Y: 20}},
			{ID: "step-1", Type: "transformation", Position: api.Position{X: 300, Y: 20}, Width: 220},
		},
		Connections: []api.LayoutConnection{
			{ID: "e-sheet-1-step-1", Source: "sheet-1", Target: "step-1"},
		},
	}
	require.NoError(t, s.SaveLayout(7, layout))

	got, err := s.GetLayout(7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, layout, got)

	// Upsert replaces.
	layout.Nodes[0].Position.X = 99
	require.NoError(t, s.SaveLayout(7, layout))
	got, err = s.GetLayout(7)
	require.NoError(t, err)
	assert.Equal(t, 99.0, got.Nodes[0].Position.X)
}

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sondeo-labs/crimeval/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_RunLifecycle(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "survey-2024")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	require.NoError(t, s.FinishRun(ctx, run.ID, RunStatusComplete))

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, RunStatusComplete, runs[0].Status)
}

func TestSQLiteStore_FinishRun_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	err := s.FinishRun(context.Background(), "missing-run", RunStatusComplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_UpsertBatch_Idempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "survey-2024")
	require.NoError(t, err)

	state := BatchState{
		RunID:    run.ID,
		BatchID:  "batch-0001",
		Index:    0,
		Size:     350,
		Status:   model.BatchStatusPending,
		Attempts: 1,
	}
	require.NoError(t, s.UpsertBatch(ctx, state))

	state.Status = model.BatchStatusSucceeded
	state.Attempts = 2
	require.NoError(t, s.UpsertBatch(ctx, state))

	got, err := s.GetBatch(ctx, "batch-0001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.BatchStatusSucceeded, got.Status)
	assert.Equal(t, 2, got.Attempts)
	assert.Equal(t, 350, got.Size)
}

func TestSQLiteStore_GetBatch_NotFound(t *testing.T) {
	s := newTestSQLiteStore(t)

	got, err := s.GetBatch(context.Background(), "batch-9999")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_ListBatches_FilterAndOrder(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, "survey-2024")
	require.NoError(t, err)

	seed := []BatchState{
		{RunID: run.ID, BatchID: "batch-0002", Index: 1, Size: 350, Status: model.BatchStatusFailed, Attempts: 3, LastError: "timeout"},
		{RunID: run.ID, BatchID: "batch-0001", Index: 0, Size: 350, Status: model.BatchStatusSucceeded, Attempts: 1},
		{RunID: run.ID, BatchID: "batch-0003", Index: 2, Size: 120, Status: model.BatchStatusSucceeded, Attempts: 1},
	}
	for _, st := range seed {
		require.NoError(t, s.UpsertBatch(ctx, st))
	}

	all, err := s.ListBatches(ctx, BatchFilter{RunID: run.ID})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "batch-0001", all[0].BatchID)
	assert.Equal(t, "batch-0003", all[2].BatchID)

	failed, err := s.ListBatches(ctx, BatchFilter{RunID: run.ID, Status: model.BatchStatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "batch-0002", failed[0].BatchID)
	assert.Equal(t, "timeout", failed[0].LastError)
}

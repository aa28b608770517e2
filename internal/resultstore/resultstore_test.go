package resultstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evokedbci/evoked/schema"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "results.db")
	store, err := NewStore(schema.SQLiteBackend, dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRunLifecycle(t *testing.T) {
	store := newTestStore(t)

	start := time.Now().Add(-time.Minute)
	runID, err := store.BeginRun(start, map[string]any{"model": "cca", "folds": 5})
	require.NoError(t, err)
	assert.Greater(t, runID, int64(0))

	curve := &schema.DecodingCurve{
		IntegrationLengths: []int{10, 20, 30},
		ProbErr:            []float64{0.5, 0.25, 0.1},
	}
	summary := schema.ModelSummary{Name: schema.ModelCCA}
	require.NoError(t, store.RecordFileResult(runID, "sim", "sim_00", 0.85, curve, summary))
	require.NoError(t, store.RecordFileResult(runID, "sim", "sim_01", 0.92, curve, summary))

	require.NoError(t, store.EndRun(runID, time.Now(), 2))

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)
	assert.Equal(t, 2, runs[0].TotalFiles)
	require.NotNil(t, runs[0].EndTime)
	assert.Contains(t, runs[0].ConfigParams, `"model":"cca"`)

	files, err := store.GetAllFileResults()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "sim_00", files[0].Filename)
	assert.Equal(t, "cca", files[0].Model)
	assert.InDelta(t, 0.85, files[0].Score, 1e-12)
	assert.Equal(t, []int{10, 20, 30}, files[0].Lengths)
	assert.Equal(t, []float64{0.5, 0.25, 0.1}, files[0].ProbErr)
}

func TestStoreStatus(t *testing.T) {
	store := newTestStore(t)

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, 0, status.TotalRuns)

	runID, err := store.BeginRun(time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, store.EndRun(runID, time.Now(), 3))

	status, err = store.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, status.TotalRuns)
	assert.Equal(t, runID, status.LastRunID)
	assert.Equal(t, 3, status.TotalFiles)
	assert.Equal(t, int64(1), status.TableSizes["evoked_runs"])
}

func TestStoreClear(t *testing.T) {
	store := newTestStore(t)

	runID, err := store.BeginRun(time.Now(), nil)
	require.NoError(t, err)
	require.NoError(t, store.RecordFileResult(runID, "sim", "sim_00", 0.5, nil, schema.ModelSummary{Name: schema.ModelCCA}))

	require.NoError(t, store.Clear())

	runs, err := store.GetAllRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)

	files, err := store.GetAllFileResults()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestStoreNoneBackend(t *testing.T) {
	store, err := NewStore(schema.NoneBackend, "")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	runID, err := store.BeginRun(time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), runID)

	require.NoError(t, store.RecordFileResult(runID, "sim", "sim_00", 0.5, nil, schema.ModelSummary{}))
	require.NoError(t, store.EndRun(runID, time.Now(), 0))

	status, err := store.GetStatus()
	require.NoError(t, err)
	assert.False(t, status.Connected)
}

func TestStoreUnsupportedBackend(t *testing.T) {
	_, err := NewStore(schema.DatabaseBackend("oracle"), "")
	assert.Error(t, err)
}

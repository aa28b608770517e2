package contract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evokedbci/evoked/schema"
)

func TestGetDatasetUnknown(t *testing.T) {
	_, err := GetDataset("nope", nil)
	require.ErrorIs(t, err, schema.ErrDatasetLoad)
}

func TestSimDataset(t *testing.T) {
	args := map[string]string{"files": "3", "trials": "4", "samples": "120", "channels": "2", "outputs": "3"}
	ds, err := GetDataset("sim", args)
	require.NoError(t, err)

	assert.Equal(t, "sim", ds.Name)
	assert.Equal(t, []string{"sim_00", "sim_01", "sim_02"}, ds.Filenames)

	x, y, coords, err := ds.Load(context.Background(), "sim_00")
	require.NoError(t, err)
	assert.Equal(t, []int{4, 120, 2}, x.Shape)
	assert.Equal(t, []int{4, 120, 3}, y.Shape)
	require.Len(t, coords, 3)
	assert.InDelta(t, 100.0, coords[1].Fs, 1e-12)

	// Stimulus sequences are binary
	for tr := 0; tr < 4; tr++ {
		for s := 0; s < 120; s++ {
			v := y.At(tr, s, 0)
			assert.True(t, v == 0 || v == 1)
		}
	}
}

func TestSimDatasetDeterministic(t *testing.T) {
	ds, err := GetDataset("sim", map[string]string{"trials": "3", "samples": "80", "channels": "2", "outputs": "2"})
	require.NoError(t, err)

	x1, y1, _, err := ds.Load(context.Background(), "sim_00")
	require.NoError(t, err)
	x2, y2, _, err := ds.Load(context.Background(), "sim_00")
	require.NoError(t, err)

	assert.Equal(t, x1.Data, x2.Data)
	assert.Equal(t, y1.Data, y2.Data)

	// Different file, different seed
	x3, _, _, err := ds.Load(context.Background(), "sim_01")
	require.NoError(t, err)
	assert.NotEqual(t, x1.Data, x3.Data)
}

func TestSimDatasetBadArgs(t *testing.T) {
	_, err := GetDataset("sim", map[string]string{"bogus": "1"})
	assert.Error(t, err)

	_, err = GetDataset("sim", map[string]string{"trials": "0"})
	assert.Error(t, err)

	ds, err := GetDataset("sim", nil)
	require.NoError(t, err)
	_, _, _, err = ds.Load(context.Background(), "sim_99")
	require.ErrorIs(t, err, schema.ErrDatasetLoad)
}

func TestParquetDatasetRequiresDir(t *testing.T) {
	_, err := GetDataset("parquet", nil)
	require.ErrorIs(t, err, schema.ErrDatasetLoad)

	_, err = GetDataset("parquet", map[string]string{"dir": t.TempDir()})
	require.ErrorIs(t, err, schema.ErrDatasetLoad) // empty dir, no recordings
}

func TestRegisterDataset(t *testing.T) {
	RegisterDataset("custom-test", func(args map[string]string) (*Dataset, error) {
		return &Dataset{Name: "custom-test", Filenames: []string{"only"}}, nil
	})
	defer delete(datasetRegistry, "custom-test")

	ds, err := GetDataset("custom-test", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, ds.Filenames)
}

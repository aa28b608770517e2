package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evokedbci/evoked/internal/contract"
	"github.com/evokedbci/evoked/schema"
)

func simSweepDataset(t *testing.T, files int) *contract.Dataset {
	t.Helper()
	ds, err := contract.GetDataset("sim", map[string]string{
		"files": fmt.Sprint(files), "trials": "10", "samples": "250",
		"channels": "3", "outputs": "4", "fs": "100", "snr": "4",
	})
	require.NoError(t, err)
	return ds
}

func TestSweepDataset(t *testing.T) {
	ds := simSweepDataset(t, 2)

	aopts := DefaultAnalysisOptions()
	aopts.Model = schema.ModelBwd

	progress := 0
	results, err := SweepDataset(context.Background(), ds, SweepOptions{
		Grid:     []GridParam{{Name: "softmaxscale", Values: []float64{1, 3}}},
		Analysis: aopts,
		Workers:  2,
		OnProgress: func(results []*schema.SweepConfigResult, completed, total int) {
			progress++
			assert.Equal(t, 2, total)
		},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 2, progress)

	for _, res := range results {
		assert.Len(t, res.Filenames, 2)
		assert.Len(t, res.Scores, 2)
		assert.Len(t, res.Curves, 2)
		for _, s := range res.Scores {
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
	assert.Equal(t, map[string]float64{"softmaxscale": 1}, results[0].Config)
	assert.Equal(t, map[string]float64{"softmaxscale": 3}, results[1].Config)
}

func TestSweepDatasetSkipsFailingRecordings(t *testing.T) {
	good := simSweepDataset(t, 1)
	ds := &contract.Dataset{
		Name:      "mixed",
		Filenames: []string{"broken", good.Filenames[0]},
		Load: func(ctx context.Context, filename string) (*schema.Tensor, *schema.Tensor, []schema.Coord, error) {
			if filename == "broken" {
				return nil, nil, nil, fmt.Errorf("corrupt recording")
			}
			return good.Load(ctx, filename)
		},
	}

	aopts := DefaultAnalysisOptions()
	aopts.Model = schema.ModelBwd
	results, err := SweepDataset(context.Background(), ds, SweepOptions{
		Grid:     []GridParam{{Name: "softmaxscale", Values: []float64{2}}},
		Analysis: aopts,
		Workers:  1,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	// The broken recording is skipped, not fatal.
	assert.Equal(t, []string{good.Filenames[0]}, results[0].Filenames)
	assert.Len(t, results[0].Scores, 1)
}

func TestSweepDatasetAllFail(t *testing.T) {
	ds := &contract.Dataset{
		Name:      "broken",
		Filenames: []string{"a", "b"},
		Load: func(context.Context, string) (*schema.Tensor, *schema.Tensor, []schema.Coord, error) {
			return nil, nil, nil, fmt.Errorf("corrupt recording")
		},
	}
	aopts := DefaultAnalysisOptions()
	aopts.Model = schema.ModelBwd
	_, err := SweepDataset(context.Background(), ds, SweepOptions{
		Grid:     []GridParam{{Name: "softmaxscale", Values: []float64{2}}},
		Analysis: aopts,
	})
	assert.ErrorIs(t, err, schema.ErrDatasetLoad)
}

package core

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evokedbci/evoked/internal/contract"
	"github.com/evokedbci/evoked/schema"
)

// loadSim pulls one recording of the deterministic synthetic dataset.
func loadSim(t *testing.T, args map[string]string) (*schema.Tensor, *schema.Tensor, []schema.Coord) {
	t.Helper()
	base := map[string]string{
		"trials": "10", "samples": "250", "channels": "3", "outputs": "4",
		"fs": "100", "snr": "4",
	}
	for k, v := range args {
		base[k] = v
	}
	ds, err := contract.GetDataset("sim", base)
	require.NoError(t, err)
	x, y, coords, err := ds.Load(context.Background(), ds.Filenames[0])
	require.NoError(t, err)
	return x, y, coords
}

func TestAnalyseDatasetCV(t *testing.T) {
	x, y, coords := loadSim(t, nil)

	opts := DefaultAnalysisOptions()
	opts.Model = schema.ModelBwd
	res, err := AnalyseDataset(x, y, coords, opts)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 1.0)
	assert.False(t, res.Curve.Empty())

	// Every trial was scored out-of-sample.
	all := res.Diagnostics.AllScores
	require.Equal(t, x.Shape[0], all.NTrials())
	for tr := 0; tr < all.NTrials(); tr++ {
		assert.False(t, math.IsNaN(all.At(0, tr, 0, 0)), "trial %d has no score", tr)
	}
	assert.Len(t, res.Diagnostics.FoldScores, 5)
	assert.Len(t, res.Diagnostics.TrainIdx, x.Shape[0])
	assert.Empty(t, res.Diagnostics.TestIdx)
}

func TestAnalyseDatasetHeldOut(t *testing.T) {
	x, y, coords := loadSim(t, nil)

	opts := DefaultAnalysisOptions()
	opts.Model = schema.ModelBwd
	opts.TestIdx = []int{8, 9}
	res, err := AnalyseDataset(x, y, coords, opts)
	require.NoError(t, err)

	assert.Equal(t, []int{8, 9}, res.Diagnostics.TestIdx)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, res.Diagnostics.TrainIdx)

	// Held-out trials are spliced in, so the full tensor has no gaps.
	all := res.Diagnostics.AllScores
	for tr := 0; tr < all.NTrials(); tr++ {
		assert.False(t, math.IsNaN(all.At(0, tr, 0, 0)), "trial %d has no score", tr)
	}
}

func TestAnalyseDatasetRankCandidates(t *testing.T) {
	x, y, coords := loadSim(t, nil)

	opts := DefaultAnalysisOptions()
	opts.Model = schema.ModelCCA
	opts.Ranks = []int{1, 2}
	res, err := AnalyseDataset(x, y, coords, opts)
	require.NoError(t, err)

	// One candidate model per rank survives to the evaluator.
	assert.Equal(t, 2, res.Scores.NModels())
	assert.False(t, res.Curve.Empty())
}

func TestAnalyseDatasetNoCV(t *testing.T) {
	x, y, coords := loadSim(t, nil)

	opts := DefaultAnalysisOptions()
	opts.Model = schema.ModelBwd
	opts.CV = false
	res, err := AnalyseDataset(x, y, coords, opts)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.Equal(t, x.Shape[0], res.Scores.NTrials())
}

func TestAnalyseDatasetMissingSampleRate(t *testing.T) {
	x, y, _ := loadSim(t, nil)
	coords := []schema.Coord{{Name: "trial"}, {Name: "time"}, {Name: "channel"}}

	opts := DefaultAnalysisOptions()
	_, err := AnalyseDataset(x, y, coords, opts)
	assert.ErrorIs(t, err, schema.ErrMissingSampleRate)
}

func TestAnalyseDatasetGridSearch(t *testing.T) {
	x, y, coords := loadSim(t, nil)

	opts := DefaultAnalysisOptions()
	opts.Model = schema.ModelBwd
	opts.TunedParams = []GridParam{{Name: "softmaxscale", Values: []float64{1, 2, 4}}}
	res, err := AnalyseDataset(x, y, coords, opts)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 1.0)
}

func TestAddVirtualOutputs(t *testing.T) {
	t.Run("sequence tensor", func(t *testing.T) {
		y := schema.NewTensor(4, 6, 1)
		for tr := 0; tr < 4; tr++ {
			for s := 0; s < 6; s++ {
				y.Set(float64(tr*10+s), tr, s, 0)
			}
		}
		out := AddVirtualOutputs(y, 2)
		require.Equal(t, []int{4, 6, 3}, out.Shape)

		// True output untouched at index 0.
		for tr := 0; tr < 4; tr++ {
			for s := 0; s < 6; s++ {
				assert.Equal(t, y.At(tr, s, 0), out.At(tr, s, 0))
			}
		}
		// First virtual output replays the true sequence one trial ahead.
		for tr := 0; tr < 4; tr++ {
			for s := 0; s < 6; s++ {
				assert.Equal(t, y.At((tr+1)%4, s, 0), out.At(tr, s, 1))
			}
		}
	})

	t.Run("event tensor", func(t *testing.T) {
		y := schema.NewTensor(3, 5, 2, 2)
		y.Fill(1)
		out := AddVirtualOutputs(y, 3)
		assert.Equal(t, []int{3, 5, 5, 2}, out.Shape)
	})
}

func TestAnalyseDatasets(t *testing.T) {
	ds, err := contract.GetDataset("sim", map[string]string{
		"files": "2", "trials": "10", "samples": "250", "channels": "3", "outputs": "4",
		"fs": "100", "snr": "4",
	})
	require.NoError(t, err)

	opts := DefaultAnalysisOptions()
	opts.Model = schema.ModelBwd
	res, err := AnalyseDatasets(context.Background(), ds, nil, opts)
	require.NoError(t, err)

	assert.Len(t, res.Scores, 2)
	assert.Len(t, res.Curves, 2)
	want := (res.Scores[0] + res.Scores[1]) / 2
	assert.InDelta(t, want, res.AveScore, 1e-12)
	assert.False(t, res.AveCurve.Empty())
}

func TestAnalyseDatasetsPreprocess(t *testing.T) {
	ds, err := contract.GetDataset("sim", map[string]string{
		"files": "1", "trials": "8", "samples": "200", "channels": "3", "outputs": "4",
		"fs": "100", "snr": "4",
	})
	require.NoError(t, err)

	called := false
	pre := func(x, y *schema.Tensor, coords []schema.Coord) (*schema.Tensor, *schema.Tensor, []schema.Coord, error) {
		called = true
		return x, y, coords, nil
	}
	opts := DefaultAnalysisOptions()
	opts.Model = schema.ModelBwd
	_, err = AnalyseDatasets(context.Background(), ds, pre, opts)
	require.NoError(t, err)
	assert.True(t, called)
}

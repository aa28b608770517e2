package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evokedbci/evoked/schema"
)

func TestAnalyseTrainTest(t *testing.T) {
	x, y, coords := loadSim(t, map[string]string{"trials": "12"})

	opts := DefaultAnalysisOptions()
	opts.Model = schema.ModelBwd
	res, err := AnalyseTrainTest(x, y, coords, 4, opts)
	require.NoError(t, err)

	// 12 trials with step 4 give two growing windows.
	require.Len(t, res.Scores, 2)
	require.Len(t, res.Curves, 2)
	assert.Equal(t, []string{
		"Trn 4 (0-3) / Tst 8 (4-11)",
		"Trn 8 (0-7) / Tst 4 (8-11)",
	}, res.Labels)
	for _, s := range res.Scores {
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
	want := (res.Scores[0] + res.Scores[1]) / 2
	assert.InDelta(t, want, res.AveScore, 1e-12)
	assert.False(t, res.AveCurve.Empty())
}

func TestAnalyseTrainTestTooFewTrials(t *testing.T) {
	x, y, coords := loadSim(t, map[string]string{"trials": "3"})

	opts := DefaultAnalysisOptions()
	opts.Model = schema.ModelBwd
	_, err := AnalyseTrainTest(x, y, coords, 5, opts)
	assert.ErrorIs(t, err, schema.ErrInsufficientData)
}

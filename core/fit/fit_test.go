package fit

import (
	"math"
	"testing"

	"github.com/evokedbci/evoked/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// simData builds a deterministic synthetic session: output 0 drives the EEG
// through a one-sample response, the other outputs flash on unrelated
// schedules.
func simData(nTrials, nSamples, nOutputs int) (x, y *schema.Tensor) {
	y = schema.NewTensor(nTrials, nSamples, nOutputs)
	x = schema.NewTensor(nTrials, nSamples, 2)
	for t := 0; t < nTrials; t++ {
		for s := 0; s < nSamples; s++ {
			for o := 0; o < nOutputs; o++ {
				if (s+t+o*3)%(3+o) == 0 {
					y.Set(1, t, s, o)
				}
			}
			// EEG responds to the true output, with a deterministic ripple
			// standing in for background activity.
			v := 2*y.At(t, s, 0) + 0.3*math.Sin(float64(7*t+3*s))
			x.Set(v, t, s, 0)
			x.Set(0.5*v+0.2*math.Cos(float64(5*t+2*s)), t, s, 1)
		}
	}
	return x, y
}

func defaultOpts() Options {
	return Options{Tau: 3, EvtLabs: []string{EventRisingEdge, EventFallingEdge}, Center: true}
}

func TestNewUnknownModel(t *testing.T) {
	_, err := New("madeup", Options{Tau: 3})
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrUnknownModel)
}

func TestNewAllTokens(t *testing.T) {
	for name := range schema.ValidModelNames {
		m, err := New(name, defaultOpts())
		require.NoError(t, err, name)
		assert.NotNil(t, m)
	}
	// Empty token defaults to the factored model.
	m, err := New("", defaultOpts())
	require.NoError(t, err)
	assert.Equal(t, schema.ModelCCA, m.Summary().Name)
}

func TestExpandEvents(t *testing.T) {
	y := schema.NewTensor(1, 4, 1)
	y.Set(1, 0, 1, 0)
	y.Set(1, 0, 2, 0)

	ye, err := ExpandEvents(y, []string{EventRisingEdge, EventFallingEdge})
	require.NoError(t, err)
	require.Equal(t, []int{1, 4, 1, 2}, ye.Shape)

	// Rising edge at sample 1, falling edge at sample 3.
	assert.Equal(t, 1.0, ye.At(0, 1, 0, 0))
	assert.Equal(t, 0.0, ye.At(0, 2, 0, 0))
	assert.Equal(t, 1.0, ye.At(0, 3, 0, 1))
	assert.Equal(t, 0.0, ye.At(0, 1, 0, 1))
}

func TestExpandEventsUnknownLabel(t *testing.T) {
	y := schema.NewTensor(1, 4, 1)
	_, err := ExpandEvents(y, []string{"wobble"})
	assert.Error(t, err)
}

func TestExpandEventsPassthrough(t *testing.T) {
	y := schema.NewTensor(2, 4, 1, 3)
	ye, err := ExpandEvents(y, []string{EventRisingEdge})
	require.NoError(t, err)
	assert.Same(t, y, ye, "4-d stimulus is already event-expanded")
}

func TestLinearFitPredictFavoursTrueOutput(t *testing.T) {
	x, y := simData(8, 60, 3)
	m, err := New(schema.ModelBwd, defaultOpts())
	require.NoError(t, err)
	require.NoError(t, m.Fit(x, y))

	fy, err := m.Predict(x, y)
	require.NoError(t, err)
	require.Equal(t, []int{1, 8, 60, 3}, fy.Shape)

	// Accumulated evidence for the true output should beat the decoys on
	// most trials.
	wins := 0
	for tr := 0; tr < 8; tr++ {
		sums := make([]float64, 3)
		for s := 0; s < 60; s++ {
			for o := 0; o < 3; o++ {
				sums[o] += fy.At(0, tr, s, o)
			}
		}
		if sums[0] > sums[1] && sums[0] > sums[2] {
			wins++
		}
	}
	assert.GreaterOrEqual(t, wins, 6)
}

func TestFitIdempotent(t *testing.T) {
	x, y := simData(6, 40, 2)
	for _, name := range []schema.ModelName{schema.ModelBwd, schema.ModelCCA, schema.ModelFwd} {
		m1, err := New(name, defaultOpts())
		require.NoError(t, err)
		m2, err := New(name, defaultOpts())
		require.NoError(t, err)

		require.NoError(t, m1.Fit(x, y))
		require.NoError(t, m2.Fit(x, y))
		fy1, err := m1.Predict(x, y)
		require.NoError(t, err)
		fy2, err := m2.Predict(x, y)
		require.NoError(t, err)
		assert.Equal(t, fy1.Data, fy2.Data, "%s: fresh adapters must agree bit for bit", name)
	}
}

func TestFitEmptyTrials(t *testing.T) {
	x := schema.NewTensor(0, 10, 2)
	y := schema.NewTensor(0, 10, 2)
	m, err := New(schema.ModelCCA, defaultOpts())
	require.NoError(t, err)
	err = m.Fit(x, y)
	assert.ErrorIs(t, err, schema.ErrInsufficientData)
}

func TestCVFitEveryTrialScored(t *testing.T) {
	x, y := simData(20, 40, 2)
	m, err := New(schema.ModelCCA, defaultOpts())
	require.NoError(t, err)

	res, err := m.CVFit(x, y, 5, true)
	require.NoError(t, err)
	require.Len(t, res.FoldScores, 5)
	require.Equal(t, 1, res.Estimator.NModels())

	for tr := 0; tr < 20; tr++ {
		for s := 0; s < 40; s++ {
			assert.False(t, math.IsNaN(res.Estimator.At(0, tr, s, 0)),
				"trial %d sample %d never scored", tr, s)
		}
	}
}

func TestCVFitTooFewTrials(t *testing.T) {
	x, y := simData(3, 20, 2)
	m, err := New(schema.ModelBwd, defaultOpts())
	require.NoError(t, err)
	_, err = m.CVFit(x, y, 5, true)
	assert.ErrorIs(t, err, schema.ErrInsufficientData)
}

func TestCVFitHeldOutScoresDifferFromTrainScores(t *testing.T) {
	// Cross-validated scores must come from models that never saw the
	// trial: they cannot all coincide with the full-data model's scores.
	x, y := simData(10, 40, 2)
	m, err := New(schema.ModelBwd, defaultOpts())
	require.NoError(t, err)

	res, err := m.CVFit(x, y, 5, true)
	require.NoError(t, err)
	full, err := m.Predict(x, y)
	require.NoError(t, err)

	same := true
	for i := range full.Data {
		if res.Estimator.Data[i] != full.Data[i] {
			same = false
			break
		}
	}
	assert.False(t, same)
}

func TestCVFitRankCandidates(t *testing.T) {
	x, y := simData(10, 40, 2)
	opts := defaultOpts()
	opts.Ranks = []int{1, 2}
	m, err := New(schema.ModelCCA, opts)
	require.NoError(t, err)

	res, err := m.CVFit(x, y, 5, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RawEstimator.NModels(), "one candidate per rank")
	assert.Equal(t, res.Estimator, res.RawEstimator,
		"rank selection is deferred to marginalization")
	assert.Contains(t, []int{1, 2}, m.Summary().Rank)
}

func TestSetParam(t *testing.T) {
	m, err := New(schema.ModelCCA, defaultOpts())
	require.NoError(t, err)

	require.NoError(t, m.SetParam("softmaxscale", 3.5))
	assert.Equal(t, 3.5, m.Decoding().SoftmaxScale)

	require.NoError(t, m.SetParam("rank", 4))
	assert.Equal(t, 4.0, m.Params()["rank"])

	assert.Error(t, m.SetParam("nope", 1))

	lin, err := New(schema.ModelRidge, defaultOpts())
	require.NoError(t, err)
	assert.Error(t, lin.SetParam("rank", 2), "linear models have no rank")
}

func TestScoreRange(t *testing.T) {
	x, y := simData(10, 40, 2)
	m, err := New(schema.ModelCCA, defaultOpts())
	require.NoError(t, err)
	res, err := m.CVFit(x, y, 5, true)
	require.NoError(t, err)

	score := m.Score(res.RawEstimator)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

package core

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evokedbci/evoked/core/fit"
	"github.com/evokedbci/evoked/schema"
)

func TestEnumerateGrid(t *testing.T) {
	grid := []GridParam{
		{Name: "a", Values: []float64{1, 2}},
		{Name: "b", Values: []float64{10, 20, 30}},
	}
	configs := enumerateGrid(grid)
	require.Len(t, configs, 6)

	// First axis varies slowest.
	assert.Equal(t, map[string]float64{"a": 1, "b": 10}, configs[0])
	assert.Equal(t, map[string]float64{"a": 1, "b": 30}, configs[2])
	assert.Equal(t, map[string]float64{"a": 2, "b": 10}, configs[3])

	assert.Len(t, enumerateGrid(nil), 1)
}

func TestRunGridSearch(t *testing.T) {
	x, y, _ := loadSim(t, nil)
	m, err := fit.New(schema.ModelBwd, fit.Options{Tau: 30, C: 1})
	require.NoError(t, err)

	grid := []GridParam{{Name: "softmaxscale", Values: []float64{1, 3}}}
	var buf bytes.Buffer
	points, err := RunGridSearch(m, x, y, 5, grid, &buf)
	require.NoError(t, err)
	require.Len(t, points, 2)
	for _, pt := range points {
		assert.NoError(t, pt.Err)
		assert.GreaterOrEqual(t, pt.Mean, 0.0)
		assert.LessOrEqual(t, pt.Mean, 1.0)
	}
	assert.Contains(t, buf.String(), "best")

	// The adapter stays configured with a value from the grid.
	got := m.Params()["softmaxscale"]
	assert.Contains(t, []float64{1, 3}, got)
}

func TestRunGridSearchAllFail(t *testing.T) {
	x, y, _ := loadSim(t, nil)
	m, err := fit.New(schema.ModelBwd, fit.Options{Tau: 30, C: 1})
	require.NoError(t, err)

	// Linear models have no rank parameter, so every point fails.
	grid := []GridParam{{Name: "rank", Values: []float64{1, 2}}}
	points, err := RunGridSearch(m, x, y, 5, grid, nil)
	assert.Error(t, err)
	for _, pt := range points {
		assert.Error(t, pt.Err)
	}
}

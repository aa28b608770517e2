package schema

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTensorIndexing(t *testing.T) {
	x := NewTensor(2, 3, 4)
	x.Set(7.5, 1, 2, 3)
	assert.Equal(t, 7.5, x.At(1, 2, 3))
	assert.Equal(t, 0.0, x.At(0, 0, 0))
	assert.Equal(t, 24, x.Size())
	assert.Equal(t, 3, x.NDim())
}

func TestTensorRowIsContiguous(t *testing.T) {
	x := NewTensor(3, 2, 2)
	for i := range x.Data {
		x.Data[i] = float64(i)
	}
	row := x.Row(1)
	require.Len(t, row, 4)
	assert.Equal(t, []float64{4, 5, 6, 7}, row)
}

func TestTensorClone(t *testing.T) {
	x := NewTensor(2, 2)
	x.Set(1, 0, 0)
	c := x.Clone()
	c.Set(9, 0, 0)
	assert.Equal(t, 1.0, x.At(0, 0), "clone must not alias the original")
	assert.Equal(t, 9.0, c.At(0, 0))
}

func TestTensorSelectRows(t *testing.T) {
	x := NewTensor(4, 2)
	for i := 0; i < 4; i++ {
		x.Set(float64(i), i, 0)
	}
	sub := x.SelectRows([]bool{true, false, false, true})
	require.Equal(t, []int{2, 2}, sub.Shape)
	assert.Equal(t, 0.0, sub.At(0, 0))
	assert.Equal(t, 3.0, sub.At(1, 0))
}

func TestConcatOutputs(t *testing.T) {
	a := NewTensor(2, 3, 1)
	b := NewTensor(2, 3, 2)
	for i := range a.Data {
		a.Data[i] = 1
	}
	for i := range b.Data {
		b.Data[i] = 2
	}
	out := ConcatOutputs(a, b)
	require.Equal(t, []int{2, 3, 3}, out.Shape)
	// Column 0 keeps the original values; appended columns follow.
	assert.Equal(t, 1.0, out.At(0, 0, 0))
	assert.Equal(t, 2.0, out.At(0, 0, 1))
	assert.Equal(t, 2.0, out.At(1, 2, 2))
}

func TestMeanSquare(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		expected float64
	}{
		{name: "simple", data: []float64{1, 2, 2, 1}, expected: 2.5},
		{name: "empty", data: []float64{}, expected: 0},
		{name: "nan skipped", data: []float64{math.NaN(), 2}, expected: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := &Tensor{Shape: []int{len(tt.data)}, Data: tt.data}
			assert.InDelta(t, tt.expected, x.MeanSquare(), 1e-12)
		})
	}
}

func TestRawScoresCopyTrial(t *testing.T) {
	full := NewRawScores(1, 3, 2, 2)
	part := NewRawScores(1, 1, 2, 2)
	for i := range part.Data {
		part.Data[i] = 5
	}
	full.CopyTrial(2, part, 0)
	assert.Equal(t, 5.0, full.At(0, 2, 1, 1))
	assert.Equal(t, 0.0, full.At(0, 1, 1, 1))
}

func TestStackModels(t *testing.T) {
	a := NewRawScores(1, 2, 2, 2)
	b := NewRawScores(2, 2, 2, 2)
	a.Fill(1)
	b.Fill(2)
	out := StackModels(a, b)
	require.Equal(t, 3, out.NModels())
	assert.Equal(t, 1.0, out.At(0, 1, 1, 1))
	assert.Equal(t, 2.0, out.At(2, 0, 0, 0))
}

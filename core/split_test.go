package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evokedbci/evoked/schema"
)

func TestNewSplit(t *testing.T) {
	t.Run("nil test idx trains on everything", func(t *testing.T) {
		s, err := NewSplit(5, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, s.TrainIdx())
		assert.False(t, s.HasTest())
		assert.Equal(t, 5, s.NumTrain())
	})

	t.Run("held-out indices leave the training set", func(t *testing.T) {
		s, err := NewSplit(5, []int{3, 4})
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, s.TrainIdx())
		assert.Equal(t, []int{3, 4}, s.TestIdx())
		assert.True(t, s.HasTest())
	})

	t.Run("out of range index is rejected", func(t *testing.T) {
		_, err := NewSplit(5, []int{5})
		assert.Error(t, err)
		_, err = NewSplit(5, []int{-1})
		assert.Error(t, err)
	})
}

func TestNewSplitFromMasks(t *testing.T) {
	t.Run("overlap is rejected", func(t *testing.T) {
		train := []bool{true, true, false}
		test := []bool{false, true, true}
		_, err := NewSplitFromMasks(train, test)
		assert.ErrorIs(t, err, schema.ErrOverlappingSplit)
	})

	t.Run("length mismatch is rejected", func(t *testing.T) {
		_, err := NewSplitFromMasks([]bool{true}, []bool{false, false})
		assert.Error(t, err)
	})

	t.Run("gaps are allowed", func(t *testing.T) {
		train := []bool{true, false, false}
		test := []bool{false, false, true}
		s, err := NewSplitFromMasks(train, test)
		require.NoError(t, err)
		assert.Equal(t, []int{0}, s.TrainIdx())
		assert.Equal(t, []int{2}, s.TestIdx())
	})
}

func TestSplitLabel(t *testing.T) {
	s, err := NewSplit(10, []int{8, 9})
	require.NoError(t, err)
	assert.Equal(t, "Trn 8 (0-7) / Tst 2 (8-9)", s.Label())
}

func TestGrowingFolds(t *testing.T) {
	folds, err := GrowingFolds(12, 4)
	require.NoError(t, err)
	require.Len(t, folds, 2)

	assert.Equal(t, 4, folds[0].NumTrain())
	assert.Equal(t, []int{4, 5, 6, 7, 8, 9, 10, 11}, folds[0].TestIdx())
	assert.Equal(t, 8, folds[1].NumTrain())
	assert.Equal(t, []int{8, 9, 10, 11}, folds[1].TestIdx())

	_, err = GrowingFolds(12, 0)
	assert.Error(t, err)
}

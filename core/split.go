package core

import (
	"fmt"

	"github.com/evokedbci/evoked/schema"
)

// Split partitions the trial axis into disjoint train and test sets. The
// union need not cover all trials; trials excluded from both sets are simply
// never fitted or evaluated.
type Split struct {
	TrainMask []bool
	TestMask  []bool
}

// NewSplit builds a split from explicit held-out trial indices. A nil
// testIdx means every trial is a training trial and no held-out evaluation
// occurs.
func NewSplit(nTrials int, testIdx []int) (*Split, error) {
	s := &Split{TrainMask: make([]bool, nTrials), TestMask: make([]bool, nTrials)}
	for i := range s.TrainMask {
		s.TrainMask[i] = true
	}
	for _, idx := range testIdx {
		if idx < 0 || idx >= nTrials {
			return nil, fmt.Errorf("test index %d out of range for %d trials", idx, nTrials)
		}
		s.TestMask[idx] = true
		s.TrainMask[idx] = false
	}
	return s, nil
}

// NewSplitFromMasks adopts caller-supplied masks, rejecting any overlap.
func NewSplitFromMasks(train, test []bool) (*Split, error) {
	if len(train) != len(test) {
		return nil, fmt.Errorf("mask lengths differ: %d vs %d", len(train), len(test))
	}
	for i := range train {
		if train[i] && test[i] {
			return nil, fmt.Errorf("%w: trial %d in both sets", schema.ErrOverlappingSplit, i)
		}
	}
	return &Split{TrainMask: train, TestMask: test}, nil
}

// TrainIdx returns the flat indices of training trials.
func (s *Split) TrainIdx() []int { return flatIdx(s.TrainMask) }

// TestIdx returns the flat indices of held-out trials.
func (s *Split) TestIdx() []int { return flatIdx(s.TestMask) }

// HasTest reports whether any trial is held out.
func (s *Split) HasTest() bool {
	for _, m := range s.TestMask {
		if m {
			return true
		}
	}
	return false
}

// NumTrain returns the number of training trials.
func (s *Split) NumTrain() int { return len(s.TrainIdx()) }

// Label renders a split the way sweep logs describe it, e.g.
// "Trn 8 (0-7) / Tst 2 (8-9)".
func (s *Split) Label() string {
	trn, tst := s.TrainIdx(), s.TestIdx()
	return fmt.Sprintf("Trn %d (%s) / Tst %d (%s)", len(trn), idxRange(trn), len(tst), idxRange(tst))
}

// GrowingFolds generates contiguous growing-window folds for learning-curve
// analysis: fold k trains on trials [0, k*step) and tests on the rest, for
// k*step stepping from step to nTrials exclusive.
func GrowingFolds(nTrials, step int) ([]*Split, error) {
	if step <= 0 {
		return nil, fmt.Errorf("fold step must be positive, got %d", step)
	}
	var folds []*Split
	for cut := step; cut < nTrials; cut += step {
		train := make([]bool, nTrials)
		test := make([]bool, nTrials)
		for i := 0; i < nTrials; i++ {
			train[i] = i < cut
			test[i] = i >= cut
		}
		fold, err := NewSplitFromMasks(train, test)
		if err != nil {
			return nil, err
		}
		folds = append(folds, fold)
	}
	return folds, nil
}

func flatIdx(mask []bool) []int {
	var out []int
	for i, m := range mask {
		if m {
			out = append(out, i)
		}
	}
	return out
}

func idxRange(idx []int) string {
	if len(idx) == 0 {
		return "-"
	}
	return fmt.Sprintf("%d-%d", idx[0], idx[len(idx)-1])
}

package schema

// RawScores holds the per-sample, per-output evidence scores (Fy) for every
// trial, with an always-present leading candidate-model axis. Shape is
// (model, trial, sample, output); the model axis has size 1 unless the fit
// produced multiple candidate ranks. Keeping the axis explicit even when it
// is trivial avoids silent shape ambiguity downstream.
type RawScores struct {
	*Tensor
}

// NewRawScores allocates a zero-filled score tensor.
func NewRawScores(nModels, nTrials, nSamples, nOutputs int) *RawScores {
	return &RawScores{NewTensor(nModels, nTrials, nSamples, nOutputs)}
}

// WrapScores adopts an existing 4-d tensor as raw scores.
func WrapScores(t *Tensor) *RawScores {
	if t.NDim() != 4 {
		panic("scores: raw scores must be 4-d (model, trial, sample, output)")
	}
	return &RawScores{t}
}

func (f *RawScores) NModels() int { return f.Shape[0] }
func (f *RawScores) NTrials() int { return f.Shape[1] }
func (f *RawScores) NSamples() int { return f.Shape[2] }
func (f *RawScores) NOutputs() int { return f.Shape[3] }

// CopyTrial copies all models' scores for trial src of other into trial dst
// of f. Used to splice held-out test predictions into the cross-validated
// score tensor.
func (f *RawScores) CopyTrial(dst int, other *RawScores, src int) {
	for m := 0; m < f.NModels(); m++ {
		n := f.NSamples() * f.NOutputs()
		base := (m*f.NTrials() + dst) * n
		obase := (m*other.NTrials() + src) * n
		copy(f.Data[base:base+n], other.Data[obase:obase+n])
	}
}

// StackModels joins score tensors along the model axis. Trial, sample and
// output dimensions must agree.
func StackModels(parts ...*RawScores) *RawScores {
	nModels := 0
	for _, p := range parts {
		nModels += p.NModels()
	}
	first := parts[0]
	out := NewRawScores(nModels, first.NTrials(), first.NSamples(), first.NOutputs())
	pos := 0
	for _, p := range parts {
		copy(out.Data[pos:pos+p.Size()], p.Data)
		pos += p.Size()
	}
	return out
}

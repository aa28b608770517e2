package fit

import (
	"errors"
	"fmt"

	"github.com/evokedbci/evoked/core/decode"
	"github.com/evokedbci/evoked/schema"
)

// rankSetter is implemented by factored adapters whose rank can be tuned.
type rankSetter interface {
	setRank(rank int)
}

// seq2seq is the shared half of every adapter: once a concrete type has
// learned a scoring filter over (channel, lag, event), prediction,
// cross-validation, scoring and parameter bookkeeping are identical.
type seq2seq struct {
	name schema.ModelName
	opts Options
	impl Model // concrete adapter, so base methods re-fit through overrides

	filter *schema.Tensor // (channel, tau, event)
	xmean  []float64      // per-channel means when centering
	fitted bool
}

func (s *seq2seq) Decoding() schema.DecodingParams { return s.opts.Decoding }

func (s *seq2seq) SetParam(name string, value float64) error {
	switch name {
	case "softmaxscale":
		s.opts.Decoding.SoftmaxScale = value
	case "priorweight":
		s.opts.Decoding.PriorSigma[1] = value
	case "priorsigma":
		s.opts.Decoding.PriorSigma[0] = value
	case "startup_correction":
		s.opts.Decoding.EpochCorrection = int(value)
	case "minDecisLen":
		s.opts.Decoding.MinDecisLen = int(value)
	case "C":
		s.opts.C = value
	case "rcond":
		s.opts.RCond = value
	case "rank":
		rs, ok := s.impl.(rankSetter)
		if !ok {
			return fmt.Errorf("model %s has no rank parameter", s.name)
		}
		rs.setRank(int(value))
		s.opts.Rank = int(value)
	default:
		return fmt.Errorf("model %s has no parameter %q", s.name, name)
	}
	return nil
}

func (s *seq2seq) Params() map[string]float64 {
	center := 0.0
	if s.opts.Center {
		center = 1
	}
	return map[string]float64{
		"tau":                float64(s.opts.Tau),
		"offset":             float64(s.opts.Offset),
		"rank":               float64(s.opts.Rank),
		"C":                  s.opts.C,
		"rcond":              s.opts.RCond,
		"center":             center,
		"softmaxscale":       s.opts.Decoding.SoftmaxScale,
		"priorweight":        s.opts.Decoding.PriorSigma[1],
		"startup_correction": float64(s.opts.Decoding.EpochCorrection),
		"minDecisLen":        float64(s.opts.Decoding.MinDecisLen),
	}
}

func (s *seq2seq) Summary() schema.ModelSummary {
	return schema.ModelSummary{
		Name:     s.name,
		Tau:      s.opts.Tau,
		Offset:   s.opts.Offset,
		Rank:     s.opts.Rank,
		EvtLabs:  append([]string(nil), s.opts.EvtLabs...),
		Params:   s.Params(),
		Decoding: s.opts.Decoding,
	}
}

// setFilter installs a freshly learned filter, replacing any previous fit.
func (s *seq2seq) setFilter(filter *schema.Tensor, xmean []float64) {
	s.filter = filter
	s.xmean = xmean
	s.fitted = true
}

// centered returns X[t,s,c] minus the stored channel mean.
func (s *seq2seq) centered(x *schema.Tensor, t, smp, c int) float64 {
	v := x.At(t, smp, c)
	if s.xmean != nil {
		v -= s.xmean[c]
	}
	return v
}

// Predict applies the learned scoring filter to every trial: first the
// per-sample event scores Fe, then the per-output evidence Fy by combining
// Fe with each output's stimulus event stream.
func (s *seq2seq) Predict(x, y *schema.Tensor) (*schema.RawScores, error) {
	if !s.fitted {
		return nil, errors.New("predict before fit")
	}
	ye, err := ExpandEvents(y, s.opts.EvtLabs)
	if err != nil {
		return nil, err
	}
	nTrials, nSamples, nChannels := x.Shape[0], x.Shape[1], x.Shape[2]
	nOutputs, nEvents := ye.Shape[2], ye.Shape[3]
	if s.filter.Shape[2] != nEvents {
		return nil, fmt.Errorf("model fitted for %d event types, stimulus has %d", s.filter.Shape[2], nEvents)
	}

	fy := schema.NewRawScores(1, nTrials, nSamples, nOutputs)
	fe := make([]float64, nEvents)
	for t := 0; t < nTrials; t++ {
		for smp := 0; smp < nSamples; smp++ {
			for e := 0; e < nEvents; e++ {
				fe[e] = 0
			}
			for tau := 0; tau < s.opts.Tau; tau++ {
				src := smp + s.opts.Offset + tau
				if src < 0 || src >= nSamples {
					continue
				}
				for c := 0; c < nChannels; c++ {
					xv := s.centered(x, t, src, c)
					if xv == 0 {
						continue
					}
					for e := 0; e < nEvents; e++ {
						fe[e] += xv * s.filter.At(c, tau, e)
					}
				}
			}
			for o := 0; o < nOutputs; o++ {
				var v float64
				for e := 0; e < nEvents; e++ {
					v += fe[e] * ye.At(t, smp, o, e)
				}
				fy.Set(v, 0, t, smp, o)
			}
		}
	}
	return fy, nil
}

// Score summarizes raw scores through the decoding curve.
func (s *seq2seq) Score(fy *schema.RawScores) float64 {
	return decode.AUDC(decode.Supervised(fy, s.opts.Decoding))
}

// CVFit is the plain k-fold cross-validated fit shared by all adapters. Each
// trial's scores come from the one fold that held it out. Factored adapters
// override this to also search candidate ranks.
func (s *seq2seq) CVFit(x, y *schema.Tensor, folds int, retrainOnAll bool) (*CVResult, error) {
	est, foldScores, err := crossValidate(s.impl, x, y, folds, s.opts.Decoding)
	if err != nil {
		return nil, err
	}
	if retrainOnAll {
		if err := s.impl.Fit(x, y); err != nil {
			return nil, fmt.Errorf("final refit on all training data: %w", err)
		}
	}
	return &CVResult{Estimator: est, RawEstimator: est, FoldScores: foldScores}, nil
}

// crossValidate runs contiguous k-fold CV for any adapter: fit on the other
// folds, predict the held-out trials, splice the predictions into one score
// tensor. The adapter is left fitted on the last fold's training data.
func crossValidate(m Model, x, y *schema.Tensor, folds int, dp schema.DecodingParams) (*schema.RawScores, []float64, error) {
	if folds <= 0 {
		folds = DefaultFolds
	}
	nTrials := x.Shape[0]
	if nTrials < folds {
		return nil, nil, fmt.Errorf("%w: %d trials for %d folds", schema.ErrInsufficientData, nTrials, folds)
	}

	var est *schema.RawScores
	foldScores := make([]float64, 0, folds)

	for k := 0; k < folds; k++ {
		lo := k * nTrials / folds
		hi := (k + 1) * nTrials / folds

		testMask := make([]bool, nTrials)
		trainMask := make([]bool, nTrials)
		for i := 0; i < nTrials; i++ {
			held := i >= lo && i < hi
			testMask[i] = held
			trainMask[i] = !held
		}

		if err := m.Fit(x.SelectRows(trainMask), y.SelectRows(trainMask)); err != nil {
			return nil, nil, fmt.Errorf("fold %d fit: %w", k, err)
		}
		foldFy, err := m.Predict(x.SelectRows(testMask), y.SelectRows(testMask))
		if err != nil {
			return nil, nil, fmt.Errorf("fold %d predict: %w", k, err)
		}

		if est == nil {
			est = schema.NewRawScores(1, nTrials, foldFy.NSamples(), foldFy.NOutputs())
			est.FillNaN()
		}
		for i, tr := 0, 0; tr < nTrials; tr++ {
			if testMask[tr] {
				est.CopyTrial(tr, foldFy, i)
				i++
			}
		}
		foldScores = append(foldScores, decode.AUDC(decode.Supervised(foldFy, dp)))
	}
	return est, foldScores, nil
}

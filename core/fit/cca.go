package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/evokedbci/evoked/schema"
)

// multiCCA is the factored model: a rank-r decomposition of the full scoring
// filter into spatial filters over channels and temporal responses over
// (lag, event), found from the whitened cross-covariance between the EEG and
// the true output's event stream.
type multiCCA struct {
	seq2seq
	spatial  *mat.Dense // (channel, rank)
	temporal *mat.Dense // (tau*event, rank), scaled by component strength
}

func newMultiCCA(opts Options) *multiCCA {
	m := &multiCCA{seq2seq: seq2seq{name: schema.ModelCCA, opts: opts}}
	m.impl = m
	return m
}

func (m *multiCCA) setRank(rank int) { m.opts.Rank = rank }

func (m *multiCCA) Fit(x, y *schema.Tensor) error {
	ye, err := ExpandEvents(y, m.opts.EvtLabs)
	if err != nil {
		return err
	}
	if x.Shape[0] == 0 {
		return fmt.Errorf("%w: no training trials", schema.ErrInsufficientData)
	}
	nChannels := x.Shape[2]
	nEvents := ye.Shape[3]
	nResp := m.opts.Tau * nEvents
	if m.opts.Rank > min(nChannels, nResp) {
		return fmt.Errorf("%w: rank %d exceeds min(%d channels, %d response taps)",
			schema.ErrInsufficientData, m.opts.Rank, nChannels, nResp)
	}

	xmean := channelMeans(x, m.opts.Center)
	cxx, cxy := covariances(x, ye, xmean, m.opts)

	isqrt, err := invSqrt(cxx, m.opts.RCond)
	if err != nil {
		return fmt.Errorf("whitening: %w", err)
	}

	var whitened mat.Dense
	whitened.Mul(isqrt, cxy)
	var svd mat.SVD
	if !svd.Factorize(&whitened, mat.SVDThin) {
		return fmt.Errorf("svd of whitened cross-covariance failed to converge")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	rank := m.opts.Rank
	spatial := mat.NewDense(nChannels, rank, nil)
	var uw mat.Dense
	uw.Mul(isqrt, &u)
	for c := 0; c < nChannels; c++ {
		for r := 0; r < rank; r++ {
			spatial.Set(c, r, uw.At(c, r))
		}
	}
	temporal := mat.NewDense(nResp, rank, nil)
	for i := 0; i < nResp; i++ {
		for r := 0; r < rank; r++ {
			temporal.Set(i, r, v.At(i, r)*s[r])
		}
	}
	m.spatial = spatial
	m.temporal = temporal

	// Expand the factored model to the full scoring filter.
	filter := schema.NewTensor(nChannels, m.opts.Tau, nEvents)
	for c := 0; c < nChannels; c++ {
		for tau := 0; tau < m.opts.Tau; tau++ {
			for e := 0; e < nEvents; e++ {
				var fv float64
				for r := 0; r < rank; r++ {
					fv += spatial.At(c, r) * temporal.At(tau*nEvents+e, r)
				}
				filter.Set(fv, c, tau, e)
			}
		}
	}
	m.setFilter(filter, xmean)
	return nil
}

// CVFit adds leave-one-rank-out grid selection over candidate ranks: one
// cross-validation run per rank, scores stacked along the candidate-model
// axis. The winner is not chosen here: the curve evaluator marginalizes
// over candidates. Only the final full-data refit needs a concrete rank, for
// which the best mean fold score is used.
func (m *multiCCA) CVFit(x, y *schema.Tensor, folds int, retrainOnAll bool) (*CVResult, error) {
	if len(m.opts.Ranks) == 0 {
		return m.seq2seq.CVFit(x, y, folds, retrainOnAll)
	}

	parts := make([]*schema.RawScores, 0, len(m.opts.Ranks))
	bestRank, bestMean := m.opts.Ranks[0], math.Inf(-1)
	var bestFoldScores []float64
	for _, rank := range m.opts.Ranks {
		m.setRank(rank)
		est, foldScores, err := crossValidate(m, x, y, folds, m.opts.Decoding)
		if err != nil {
			return nil, fmt.Errorf("rank %d: %w", rank, err)
		}
		parts = append(parts, est)

		mean := 0.0
		for _, fs := range foldScores {
			mean += fs
		}
		mean /= float64(len(foldScores))
		if mean > bestMean {
			bestRank, bestMean = rank, mean
			bestFoldScores = foldScores
		}
	}

	stacked := schema.StackModels(parts...)
	m.setRank(bestRank)
	if retrainOnAll {
		if err := m.Fit(x, y); err != nil {
			return nil, fmt.Errorf("final refit at rank %d: %w", bestRank, err)
		}
	}
	return &CVResult{Estimator: stacked, RawEstimator: stacked, FoldScores: bestFoldScores}, nil
}

// covariances accumulates the channel covariance Cxx and the cross
// covariance Cxy between each channel's lagged EEG and the true output's
// event indicators.
func covariances(x, ye *schema.Tensor, xmean []float64, opts Options) (cxx, cxy *mat.Dense) {
	nTrials, nSamples, nChannels := x.Shape[0], x.Shape[1], x.Shape[2]
	nEvents := ye.Shape[3]

	cxx = mat.NewDense(nChannels, nChannels, nil)
	cxy = mat.NewDense(nChannels, opts.Tau*nEvents, nil)
	xv := make([]float64, nChannels)
	for t := 0; t < nTrials; t++ {
		for s := 0; s < nSamples; s++ {
			for c := 0; c < nChannels; c++ {
				v := x.At(t, s, c)
				if xmean != nil {
					v -= xmean[c]
				}
				xv[c] = v
			}
			for a := 0; a < nChannels; a++ {
				for b := 0; b < nChannels; b++ {
					cxx.Set(a, b, cxx.At(a, b)+xv[a]*xv[b])
				}
			}
			// xv holds the EEG at s; it contributes to the response of any
			// event at s-offset-tau.
			for tau := 0; tau < opts.Tau; tau++ {
				src := s - opts.Offset - tau
				if src < 0 || src >= nSamples {
					continue
				}
				for e := 0; e < nEvents; e++ {
					yv := ye.At(t, src, 0, e)
					if yv == 0 {
						continue
					}
					for c := 0; c < nChannels; c++ {
						col := tau*nEvents + e
						cxy.Set(c, col, cxy.At(c, col)+xv[c]*yv)
					}
				}
			}
		}
	}
	return cxx, cxy
}

// invSqrt computes the inverse square root of a symmetric PSD matrix with
// small eigenvalues dropped at the rcond threshold.
func invSqrt(a *mat.Dense, rcond float64) (*mat.Dense, error) {
	n, _ := a.Dims()
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDFull) {
		return nil, fmt.Errorf("svd of %dx%d covariance failed to converge", n, n)
	}
	var u mat.Dense
	svd.UTo(&u)
	s := svd.Values(nil)

	thresh := rcond * s[0]
	out := mat.NewDense(n, n, nil)
	for i, sv := range s {
		if sv <= thresh {
			continue
		}
		w := 1 / math.Sqrt(sv)
		for r := 0; r < n; r++ {
			ui := u.At(r, i)
			if ui == 0 {
				continue
			}
			for c := 0; c < n; c++ {
				out.Set(r, c, out.At(r, c)+w*ui*u.At(c, i))
			}
		}
	}
	return out, nil
}

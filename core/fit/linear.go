package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/evokedbci/evoked/schema"
)

// lossKind selects the objective the generic linear adapter minimizes.
type lossKind int

const (
	lossSquared  lossKind = iota // ridge / plain least squares
	lossLogistic                 // logistic regression on labelized events
	lossHinge                    // linear SVC on labelized events
	lossEpsilon                  // linear SVR
)

// sgdEpochs is how many passes the iterative losses take over the data.
const sgdEpochs = 50

// linearModel is the backward family: it learns a filter mapping a window of
// EEG directly onto the true output's event stream. Covers the bwd, ridge,
// lr, svr, svc and linearsklearn tokens; they differ only in loss.
type linearModel struct {
	seq2seq
	loss lossKind
}

func newLinear(name schema.ModelName, loss lossKind, opts Options) *linearModel {
	m := &linearModel{seq2seq: seq2seq{name: name, opts: opts}, loss: loss}
	m.impl = m
	return m
}

func (m *linearModel) Fit(x, y *schema.Tensor) error {
	ye, err := ExpandEvents(y, m.opts.EvtLabs)
	if err != nil {
		return err
	}
	if x.Shape[0] == 0 {
		return fmt.Errorf("%w: no training trials", schema.ErrInsufficientData)
	}

	xmean := channelMeans(x, m.opts.Center)
	a, b := backwardDesign(x, ye, xmean, m.opts)

	var v *mat.Dense
	if m.loss == lossSquared {
		v, err = pinvSolve(a, b, m.opts.RCond)
		if err != nil {
			return fmt.Errorf("least-squares fit: %w", err)
		}
	} else {
		v = sgdSolve(a, b, m.loss, m.opts.C)
	}

	nChannels := x.Shape[2]
	nEvents := ye.Shape[3]
	filter := schema.NewTensor(nChannels, m.opts.Tau, nEvents)
	for tau := 0; tau < m.opts.Tau; tau++ {
		for c := 0; c < nChannels; c++ {
			for e := 0; e < nEvents; e++ {
				filter.Set(v.At(tau*nChannels+c, e), c, tau, e)
			}
		}
	}
	m.setFilter(filter, xmean)
	return nil
}

// forwardModel learns the generative direction instead: each event type's
// impulse response in every channel. Scoring reuses the learned response as
// a matched filter against the measured EEG.
type forwardModel struct {
	seq2seq
}

func newForward(opts Options) *forwardModel {
	m := &forwardModel{seq2seq: seq2seq{name: schema.ModelFwd, opts: opts}}
	m.impl = m
	return m
}

func (m *forwardModel) Fit(x, y *schema.Tensor) error {
	ye, err := ExpandEvents(y, m.opts.EvtLabs)
	if err != nil {
		return err
	}
	if x.Shape[0] == 0 {
		return fmt.Errorf("%w: no training trials", schema.ErrInsufficientData)
	}

	xmean := channelMeans(x, m.opts.Center)
	a, b := forwardDesign(x, ye, xmean, m.opts)
	g, err := pinvSolve(a, b, m.opts.RCond)
	if err != nil {
		return fmt.Errorf("forward-model fit: %w", err)
	}

	nChannels := x.Shape[2]
	nEvents := ye.Shape[3]
	filter := schema.NewTensor(nChannels, m.opts.Tau, nEvents)
	for tau := 0; tau < m.opts.Tau; tau++ {
		for e := 0; e < nEvents; e++ {
			for c := 0; c < nChannels; c++ {
				filter.Set(g.At(tau*nEvents+e, c), c, tau, e)
			}
		}
	}
	m.setFilter(filter, xmean)
	return nil
}

// channelMeans returns per-channel means, or nil when centering is off.
func channelMeans(x *schema.Tensor, center bool) []float64 {
	if !center {
		return nil
	}
	nTrials, nSamples, nChannels := x.Shape[0], x.Shape[1], x.Shape[2]
	means := make([]float64, nChannels)
	for t := 0; t < nTrials; t++ {
		for s := 0; s < nSamples; s++ {
			for c := 0; c < nChannels; c++ {
				means[c] += x.At(t, s, c)
			}
		}
	}
	n := float64(nTrials * nSamples)
	for c := range means {
		means[c] /= n
	}
	return means
}

// backwardDesign lays out one row per (trial, sample): the EEG window that
// follows the sample as features, the true output's event indicators as
// targets. The true output is output index 0 by convention.
func backwardDesign(x, ye *schema.Tensor, xmean []float64, opts Options) (a, b *mat.Dense) {
	nTrials, nSamples, nChannels := x.Shape[0], x.Shape[1], x.Shape[2]
	nEvents := ye.Shape[3]
	nFeat := opts.Tau * nChannels

	a = mat.NewDense(nTrials*nSamples, nFeat, nil)
	b = mat.NewDense(nTrials*nSamples, nEvents, nil)
	for t := 0; t < nTrials; t++ {
		for s := 0; s < nSamples; s++ {
			row := t*nSamples + s
			for tau := 0; tau < opts.Tau; tau++ {
				src := s + opts.Offset + tau
				if src < 0 || src >= nSamples {
					continue
				}
				for c := 0; c < nChannels; c++ {
					v := x.At(t, src, c)
					if xmean != nil {
						v -= xmean[c]
					}
					a.Set(row, tau*nChannels+c, v)
				}
			}
			for e := 0; e < nEvents; e++ {
				b.Set(row, e, ye.At(t, s, 0, e))
			}
		}
	}
	return a, b
}

// forwardDesign lays out one row per (trial, sample): the true output's
// recent event history as features, the measured EEG as targets.
func forwardDesign(x, ye *schema.Tensor, xmean []float64, opts Options) (a, b *mat.Dense) {
	nTrials, nSamples, nChannels := x.Shape[0], x.Shape[1], x.Shape[2]
	nEvents := ye.Shape[3]
	nFeat := opts.Tau * nEvents

	a = mat.NewDense(nTrials*nSamples, nFeat, nil)
	b = mat.NewDense(nTrials*nSamples, nChannels, nil)
	for t := 0; t < nTrials; t++ {
		for s := 0; s < nSamples; s++ {
			row := t*nSamples + s
			for tau := 0; tau < opts.Tau; tau++ {
				src := s - opts.Offset - tau
				if src < 0 || src >= nSamples {
					continue
				}
				for e := 0; e < nEvents; e++ {
					a.Set(row, tau*nEvents+e, ye.At(t, src, 0, e))
				}
			}
			for c := 0; c < nChannels; c++ {
				v := x.At(t, s, c)
				if xmean != nil {
					v -= xmean[c]
				}
				b.Set(row, c, v)
			}
		}
	}
	return a, b
}

// pinvSolve solves min ||A V - B|| through the normal equations with an
// SVD pseudo-inverse, dropping singular values below rcond times the
// largest. The threshold is the conditioning knob that regularizes
// near-singular systems away instead of failing on them.
func pinvSolve(a, b *mat.Dense, rcond float64) (*mat.Dense, error) {
	_, nFeat := a.Dims()
	_, nTarg := b.Dims()

	var ata mat.Dense
	ata.Mul(a.T(), a)
	var atb mat.Dense
	atb.Mul(a.T(), b)

	var svd mat.SVD
	if !svd.Factorize(&ata, mat.SVDFull) {
		return nil, fmt.Errorf("svd of %dx%d normal matrix failed to converge", nFeat, nFeat)
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	s := svd.Values(nil)

	thresh := rcond * s[0]
	inv := mat.NewDense(nFeat, nFeat, nil)
	for i, sv := range s {
		if sv <= thresh {
			continue
		}
		// inv += v_i * u_i^T / s_i
		for r := 0; r < nFeat; r++ {
			vi := v.At(r, i)
			if vi == 0 {
				continue
			}
			for c := 0; c < nFeat; c++ {
				inv.Set(r, c, inv.At(r, c)+vi*u.At(c, i)/sv)
			}
		}
	}

	out := mat.NewDense(nFeat, nTarg, nil)
	out.Mul(inv, &atb)
	return out, nil
}

// sgdSolve fits one weight column per target with plain subgradient descent.
// Binary targets are mapped to +/-1 for the classification losses. C follows
// the usual convention where larger C means weaker regularization.
func sgdSolve(a, b *mat.Dense, loss lossKind, c float64) *mat.Dense {
	nRows, nFeat := a.Dims()
	_, nTarg := b.Dims()
	if c <= 0 {
		c = 1
	}
	lambda := 1 / (c * float64(nRows))
	const epsilon = 0.1 // insensitivity band for the svr loss

	w := mat.NewDense(nFeat, nTarg, nil)
	grad := make([]float64, nFeat)
	for epoch := 0; epoch < sgdEpochs; epoch++ {
		lr := 0.1 / (1 + 0.1*float64(epoch))
		for j := 0; j < nTarg; j++ {
			for i := range grad {
				grad[i] = 0
			}
			for r := 0; r < nRows; r++ {
				pred := 0.0
				for f := 0; f < nFeat; f++ {
					pred += a.At(r, f) * w.At(f, j)
				}
				target := b.At(r, j)
				var d float64 // d loss / d pred
				switch loss {
				case lossLogistic:
					t := 2*target - 1
					d = -t / (1 + math.Exp(t*pred))
				case lossHinge:
					t := 2*target - 1
					if t*pred < 1 {
						d = -t
					}
				case lossEpsilon:
					switch {
					case pred-target > epsilon:
						d = 1
					case target-pred > epsilon:
						d = -1
					}
				default:
					d = pred - target
				}
				if d == 0 {
					continue
				}
				for f := 0; f < nFeat; f++ {
					grad[f] += d * a.At(r, f)
				}
			}
			for f := 0; f < nFeat; f++ {
				g := grad[f]/float64(nRows) + lambda*w.At(f, j)
				w.Set(f, j, w.At(f, j)-lr*g)
			}
		}
	}
	return w
}

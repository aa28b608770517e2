// Package decode turns raw per-sample evidence scores into decoding curves:
// the expected decoding error as a function of accumulated evidence length.
package decode

import (
	"math"

	"github.com/evokedbci/evoked/schema"
)

// maxCurvePoints caps how many integration lengths a curve records; lengths
// are evenly spaced across the trial.
const maxCurvePoints = 25

const sigmaFloor = 1e-12

// Supervised computes the decoding curve for a raw score tensor where the
// true output is known to be output index 0. When the tensor carries more
// than one candidate model, the models are marginalized per trial, weighted
// by each candidate's own accumulated evidence, rather than hard-selecting a
// winner.
func Supervised(fy *schema.RawScores, p schema.DecodingParams) *schema.DecodingCurve {
	nSamples := fy.NSamples()
	lengths := integrationLengths(nSamples, p.MinDecisLen)
	if len(lengths) == 0 {
		return &schema.DecodingCurve{}
	}

	curve := &schema.DecodingCurve{
		IntegrationLengths: lengths,
		ProbErr:            make([]float64, len(lengths)),
		ProbErrEst:         make([]float64, len(lengths)),
		StdErr:             make([]float64, len(lengths)),
		TrialCounts:        make([]int, len(lengths)),
	}

	yerrSum := make([]float64, len(lengths))
	yerrSqSum := make([]float64, len(lengths))
	perrSum := make([]float64, len(lengths))

	for t := 0; t < fy.NTrials(); t++ {
		for li, L := range lengths {
			yerr, perr, ok := decideAt(fy, t, L, p)
			if !ok {
				continue
			}
			yerrSum[li] += yerr
			yerrSqSum[li] += yerr * yerr
			perrSum[li] += perr
			curve.TrialCounts[li]++
		}
	}

	for li := range lengths {
		n := float64(curve.TrialCounts[li])
		if n == 0 {
			curve.ProbErr[li] = math.NaN()
			curve.ProbErrEst[li] = math.NaN()
			curve.StdErr[li] = math.NaN()
			continue
		}
		mean := yerrSum[li] / n
		curve.ProbErr[li] = mean
		curve.ProbErrEst[li] = perrSum[li] / n
		variance := yerrSqSum[li]/n - mean*mean
		if variance < 0 {
			variance = 0
		}
		curve.StdErr[li] = math.Sqrt(variance / n)
	}
	return curve
}

// integrationLengths returns the evidence lengths to evaluate: evenly spaced,
// increasing, ending at the trial length, with lengths below the minimum
// decision length excluded. A negative minimum means no minimum.
func integrationLengths(nSamples, minDecisLen int) []int {
	if nSamples <= 0 {
		return nil
	}
	step := (nSamples + maxCurvePoints - 1) / maxCurvePoints
	if step < 1 {
		step = 1
	}
	var lengths []int
	for l := step; l < nSamples; l += step {
		lengths = append(lengths, l)
	}
	lengths = append(lengths, nSamples)

	if minDecisLen < 0 {
		return lengths
	}
	kept := lengths[:0]
	for _, l := range lengths {
		if l >= minDecisLen {
			kept = append(kept, l)
		}
	}
	return kept
}

// decideAt accumulates evidence for trial t over the first (or, backward,
// last) L samples, converts it to a probability over outputs, and reports
// whether the most probable output was wrong (yerr) together with the
// model's own estimated error probability (perr). ok is false when the
// trial's scores in that window are not finite, e.g. a trial that no model
// ever predicted.
func decideAt(fy *schema.RawScores, t, L int, p schema.DecodingParams) (yerr, perr float64, ok bool) {
	nModels := fy.NModels()
	nOutputs := fy.NOutputs()
	nSamples := fy.NSamples()

	// Per-model output probabilities and evidence weights.
	probs := make([][]float64, nModels)
	modelEvidence := make([]float64, nModels)

	for m := 0; m < nModels; m++ {
		sum := make([]float64, nOutputs)
		ssq := 0.0
		for i := 0; i < L; i++ {
			s := i
			if p.BwdAccumulate {
				s = nSamples - 1 - i
			}
			msq := 0.0
			for y := 0; y < nOutputs; y++ {
				v := fy.At(m, t, s, y)
				sum[y] += v
				msq += v * v
			}
			ssq += msq / float64(nOutputs)
		}
		for _, v := range sum {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, 0, false
			}
		}

		// Bayesian-smoothed scale estimate: the prior dominates while the
		// window is short and washes out as real evidence accumulates.
		s0, w := p.PriorSigma[0], p.PriorSigma[1]
		sigma := (w*s0 + ssq) / (w + float64(L))
		if sigma < sigmaFloor {
			sigma = sigmaFloor
		}

		// Startup correction: pretend the first EpochCorrection epochs were
		// pure noise, deflating confidence from degenerate early windows.
		n := float64(L + max(p.EpochCorrection, 0))
		scale := p.SoftmaxScale / math.Sqrt(sigma*n)

		probs[m] = softmax(sum, scale)
		modelEvidence[m] = scale * maxOf(sum)
	}

	// Marginalize over candidate models, weighting each by its own evidence.
	weights := softmax(modelEvidence, 1)
	marginal := make([]float64, nOutputs)
	for m := 0; m < nModels; m++ {
		for y := 0; y < nOutputs; y++ {
			marginal[y] += weights[m] * probs[m][y]
		}
	}

	best, pmax := 0, marginal[0]
	for y := 1; y < nOutputs; y++ {
		if marginal[y] > pmax {
			best, pmax = y, marginal[y]
		}
	}
	if best != 0 {
		yerr = 1
	}
	return yerr, 1 - pmax, true
}

// softmax returns the softmax of scale*v, computed with the max subtracted
// for numerical stability.
func softmax(v []float64, scale float64) []float64 {
	m := maxOf(v)
	out := make([]float64, len(v))
	var z float64
	for i, x := range v {
		out[i] = math.Exp(scale * (x - m))
		z += out[i]
	}
	for i := range out {
		out[i] /= z
	}
	return out
}

func maxOf(v []float64) float64 {
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m
}

// AUDC summarizes a decoding curve as 1 minus the mean error rate across
// integration lengths, a scalar in [0,1] where higher is better. NaN points
// (lengths no trial reached) are skipped; an empty curve scores 0.
func AUDC(curve *schema.DecodingCurve) float64 {
	if curve == nil || curve.Empty() {
		return 0
	}
	sum, n := 0.0, 0
	for _, e := range curve.ProbErr {
		if math.IsNaN(e) {
			continue
		}
		sum += e
		n++
	}
	if n == 0 {
		return 0
	}
	return 1 - sum/float64(n)
}

package schema

import "math"

// DecodingCurve is the expected decoding error as a function of how much
// evidence has been accumulated. Points are ordered by integration length.
type DecodingCurve struct {
	IntegrationLengths []int     // Accumulated evidence length per point, in samples
	ProbErr            []float64 // Measured error rate across trials
	ProbErrEst         []float64 // Model's own estimated error probability
	StdErr             []float64 // Standard error of ProbErr across trials
	TrialCounts        []int     // Number of trials contributing to each point
}

// Len returns the number of curve points.
func (c *DecodingCurve) Len() int { return len(c.IntegrationLengths) }

// Empty reports whether the curve has no points, e.g. when the minimum
// decision length exceeds the trial length.
func (c *DecodingCurve) Empty() bool { return c.Len() == 0 }

// Seconds converts the integration-length axis to seconds at the given
// sample rate. Returns nil when fs is not positive.
func (c *DecodingCurve) Seconds(fs float64) []float64 {
	if fs <= 0 {
		return nil
	}
	out := make([]float64, c.Len())
	for i, n := range c.IntegrationLengths {
		out[i] = float64(n) / fs
	}
	return out
}

// AverageCurves aggregates decoding curves from several files into one curve
// by pointwise arithmetic mean, NaN-skipping, truncated to the shortest
// curve. Trial counts are summed. Optional per-point slices (ProbErrEst,
// StdErr, TrialCounts) may be shorter than the length axis; missing values
// are treated as absent rather than indexed.
func AverageCurves(curves []*DecodingCurve) *DecodingCurve {
	minLen := -1
	for _, c := range curves {
		if c == nil || c.Empty() {
			continue
		}
		if minLen < 0 || c.Len() < minLen {
			minLen = c.Len()
		}
	}
	if minLen < 0 {
		return &DecodingCurve{}
	}

	out := &DecodingCurve{
		IntegrationLengths: make([]int, minLen),
		ProbErr:            make([]float64, minLen),
		ProbErrEst:         make([]float64, minLen),
		StdErr:             make([]float64, minLen),
		TrialCounts:        make([]int, minLen),
	}
	for i := 0; i < minLen; i++ {
		var lenSum, perr, pest, serr float64
		n, nEst, nSerr := 0, 0, 0
		for _, c := range curves {
			if c == nil || c.Empty() || i >= len(c.ProbErr) {
				continue
			}
			if math.IsNaN(c.ProbErr[i]) {
				continue
			}
			lenSum += float64(c.IntegrationLengths[i])
			perr += c.ProbErr[i]
			n++
			if i < len(c.ProbErrEst) && !math.IsNaN(c.ProbErrEst[i]) {
				pest += c.ProbErrEst[i]
				nEst++
			}
			if i < len(c.StdErr) && !math.IsNaN(c.StdErr[i]) {
				serr += c.StdErr[i]
				nSerr++
			}
			if i < len(c.TrialCounts) {
				out.TrialCounts[i] += c.TrialCounts[i]
			}
		}
		if n == 0 {
			out.ProbErr[i] = math.NaN()
			out.ProbErrEst[i] = math.NaN()
			out.StdErr[i] = math.NaN()
			continue
		}
		out.IntegrationLengths[i] = int(math.Round(lenSum / float64(n)))
		out.ProbErr[i] = perr / float64(n)
		out.ProbErrEst[i] = math.NaN()
		if nEst > 0 {
			out.ProbErrEst[i] = pest / float64(nEst)
		}
		out.StdErr[i] = math.NaN()
		if nSerr > 0 {
			out.StdErr[i] = serr / float64(nSerr)
		}
	}
	return out
}

// DecodingParams are the hyper-parameters that control how raw evidence
// scores are turned into a decoding curve. They belong to the fitted model
// and are passed through to the curve evaluator unchanged.
type DecodingParams struct {
	MinDecisLen     int        // Minimum accumulated samples before a decision; negative = none
	BwdAccumulate   bool       // Accumulate evidence from the end of the trial backward
	PriorSigma      [2]float64 // (prior scale estimate, prior weight) smoothing early estimates
	SoftmaxScale    float64    // Temperature converting accumulated evidence to probabilities
	EpochCorrection int        // Startup correction for initial low-information epochs
}

// DefaultDecodingParams mirror the decoder's operating defaults.
func DefaultDecodingParams() DecodingParams {
	return DecodingParams{
		MinDecisLen:     -1,
		PriorSigma:      [2]float64{0, 120},
		SoftmaxScale:    2,
		EpochCorrection: 0,
	}
}

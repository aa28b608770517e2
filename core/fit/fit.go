// Package fit has the stimulus-response model adapters: a uniform
// fit/predict/cross-validate capability interface with one concrete type per
// model token. All adapters reduce to a scoring filter over (channel, lag,
// event-type) applied to the EEG, so prediction and cross-validation are
// shared; only how the filter is learned differs per variant.
package fit

import (
	"fmt"

	"github.com/evokedbci/evoked/schema"
)

// DefaultFolds is the fold count used when cross-validating without an
// explicit request.
const DefaultFolds = 5

// Model is the capability set every adapter provides.
type Model interface {
	// Fit learns model parameters from training trials. Y may be raw
	// stimulus codes (3-d) or pre-expanded event indicators (4-d).
	Fit(X, Y *schema.Tensor) error

	// Predict scores every output of every trial with the fitted model,
	// returning raw evidence with a size-1 candidate-model axis.
	Predict(X, Y *schema.Tensor) (*schema.RawScores, error)

	// CVFit cross-validates over the training trials so that every trial's
	// scores come from a fold in which it was held out. When retrainOnAll is
	// set the adapter refits on all trials afterwards; the cross-validated
	// scores are returned unchanged either way.
	CVFit(X, Y *schema.Tensor, folds int, retrainOnAll bool) (*CVResult, error)

	// Score summarizes raw scores as an area-under-decoding-curve value in
	// [0,1].
	Score(fy *schema.RawScores) float64

	// Decoding returns the adapter's decoding hyper-parameters.
	Decoding() schema.DecodingParams

	// SetParam reconfigures one named hyper-parameter; used by grid search.
	SetParam(name string, value float64) error

	// Params snapshots the adapter's current configuration.
	Params() map[string]float64

	// Summary snapshots the adapter for result records.
	Summary() schema.ModelSummary
}

// CVResult is what CVFit produces.
type CVResult struct {
	// Estimator holds the primary cross-validated scores (size-1 model axis
	// for plain CV).
	Estimator *schema.RawScores

	// RawEstimator stacks scores along the candidate-model axis when rank
	// selection ran; identical to Estimator otherwise. The winning candidate
	// is never hard-selected here: that is deferred to marginalization in
	// the curve evaluator.
	RawEstimator *schema.RawScores

	// FoldScores is the held-out score of each fold.
	FoldScores []float64
}

// Options configures adapter construction.
type Options struct {
	Tau     int      // Response window length in samples
	Offset  int      // Response start offset in samples
	EvtLabs []string // Ordered event-type labels, e.g. ["re","fe"]
	Center  bool     // Subtract feature means before fitting (intercept)

	Rank  int   // Rank for factored models; 0 means 1
	Ranks []int // Candidate ranks for cross-validated rank selection

	C     float64 // Regularization strength for generic linear models
	RCond float64 // Conditioning threshold for pseudo-inverse solves

	Decoding schema.DecodingParams
}

func (o Options) withDefaults() Options {
	if o.Rank <= 0 {
		o.Rank = 1
	}
	if o.RCond <= 0 {
		o.RCond = 1e-8
	}
	if o.Decoding == (schema.DecodingParams{}) {
		o.Decoding = schema.DefaultDecodingParams()
	}
	return o
}

// New constructs the adapter named by the model token. Unknown tokens fail
// with schema.ErrUnknownModel.
func New(name schema.ModelName, opts Options) (Model, error) {
	opts = opts.withDefaults()
	switch name {
	case "", schema.ModelCCA:
		return newMultiCCA(opts), nil
	case schema.ModelBwd:
		return newLinear(schema.ModelBwd, lossSquared, opts), nil
	case schema.ModelFwd:
		return newForward(opts), nil
	case schema.ModelRidge:
		return newLinear(schema.ModelRidge, lossSquared, opts), nil
	case schema.ModelLR:
		return newLinear(schema.ModelLR, lossLogistic, opts), nil
	case schema.ModelSVR:
		return newLinear(schema.ModelSVR, lossEpsilon, opts), nil
	case schema.ModelSVC:
		return newLinear(schema.ModelSVC, lossHinge, opts), nil
	case schema.ModelLinearSklearn:
		return newLinear(schema.ModelLinearSklearn, lossSquared, opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", schema.ErrUnknownModel, name)
	}
}

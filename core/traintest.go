package core

import (
	"fmt"

	"github.com/evokedbci/evoked/core/decode"
	"github.com/evokedbci/evoked/schema"
)

// TrainTestResult is a learning curve: one score and decoding curve per
// growing training window, evaluated on the trials after the window.
type TrainTestResult struct {
	Labels []string
	Scores []float64
	Curves []*schema.DecodingCurve

	AveScore float64
	AveCurve *schema.DecodingCurve
}

// AnalyseTrainTest measures how performance grows with calibration data. For
// each growing-window split it fits a fresh model on the leading trials and
// scores only the trailing held-out trials, so later points never see easier
// conditions than earlier ones. Refitting on the full data after scoring is
// deliberately skipped: the point is the held-out estimate, not a deployable
// model.
func AnalyseTrainTest(x, y *schema.Tensor, coords []schema.Coord, step int, opts AnalysisOptions) (*TrainTestResult, error) {
	fs := opts.Fs
	if fs <= 0 {
		fs = schema.SampleRate(coords)
	}
	if fs <= 0 {
		return nil, schema.ErrMissingSampleRate
	}
	tau := int(opts.TauMs * fs / 1000)
	if tau < 1 {
		tau = 1
	}
	offset := int(opts.OffsetMs * fs / 1000)
	if step <= 0 {
		step = 1
	}

	folds, err := GrowingFolds(x.Shape[0], step)
	if err != nil {
		return nil, err
	}
	if len(folds) == 0 {
		return nil, fmt.Errorf("%w: %d trials leave no room for a growing split of step %d",
			schema.ErrInsufficientData, x.Shape[0], step)
	}

	out := &TrainTestResult{}
	for _, fold := range folds {
		adapter := opts.Adapter
		if adapter == nil {
			adapter, err = buildAdapter(x, tau, offset, opts)
			if err != nil {
				return nil, err
			}
		}
		if err := adapter.Fit(x.SelectRows(fold.TrainMask), y.SelectRows(fold.TrainMask)); err != nil {
			return nil, fmt.Errorf("%s: %w", fold.Label(), err)
		}
		fy, err := adapter.Predict(x.SelectRows(fold.TestMask), y.SelectRows(fold.TestMask))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fold.Label(), err)
		}

		out.Labels = append(out.Labels, fold.Label())
		out.Scores = append(out.Scores, adapter.Score(fy))
		out.Curves = append(out.Curves, decode.Supervised(fy, adapter.Decoding()))
		fmt.Fprintf(opts.logw(), "%s: score=%.4f\n", fold.Label(), out.Scores[len(out.Scores)-1])
	}

	sum := 0.0
	for _, s := range out.Scores {
		sum += s
	}
	out.AveScore = sum / float64(len(out.Scores))
	out.AveCurve = schema.AverageCurves(out.Curves)
	return out, nil
}

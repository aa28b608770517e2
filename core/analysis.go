package core

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/evokedbci/evoked/core/decode"
	"github.com/evokedbci/evoked/core/fit"
	"github.com/evokedbci/evoked/internal"
	"github.com/evokedbci/evoked/internal/contract"
	"github.com/evokedbci/evoked/schema"
)

// AnalysisOptions configures one dataset analysis.
type AnalysisOptions struct {
	Model   schema.ModelName // Model token; empty means cca
	Adapter fit.Model        // Pre-built adapter; wins over Model

	TestIdx []int // Held-out trial indices; nil = no held-out evaluation
	CV      bool  // Cross-validate instead of a single (overfit) fit
	Folds   int   // Fold count for CV; 0 = default

	TauMs    float64 // Stimulus-response window in milliseconds
	OffsetMs float64 // Response start offset in milliseconds
	Fs       float64 // Sample rate override when coords carry none

	Rank     int
	Ranks    []int // Candidate ranks for cross-validated rank selection
	EvtLabs  []string
	Center   bool
	NVirtOut int // Virtual (permuted) outputs appended for calibration

	RetrainOnAll bool
	TunedParams  []GridParam // Hyper-parameter grid searched before the final fit

	Log io.Writer // Progress sink; nil discards
}

// DefaultAnalysisOptions mirror the decoder's operating defaults.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		Model:        schema.ModelCCA,
		CV:           true,
		TauMs:        300,
		Rank:         1,
		EvtLabs:      []string{fit.EventRisingEdge, fit.EventFallingEdge},
		Center:       true,
		RetrainOnAll: true,
	}
}

func (o AnalysisOptions) logw() io.Writer {
	if o.Log == nil {
		return io.Discard
	}
	return o.Log
}

// AnalyseDataset runs the full evaluation pipeline on one recording: derive
// sampling parameters, build the model, split, cross-validate (optionally
// with rank or hyper-parameter search), splice held-out predictions into a
// fully out-of-sample score tensor, and reduce it to a summary score and
// decoding curve.
func AnalyseDataset(x, y *schema.Tensor, coords []schema.Coord, opts AnalysisOptions) (*schema.AnalysisResult, error) {
	// --- 1. Sampling parameters ---
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
	fmt.Fprintf(opts.logw(), "X=%v, Y=%v @%ghz\n", x.Shape, y.Shape, fs)

	// --- 2. Model construction ---
	adapter := opts.Adapter
	if adapter == nil {
		var err error
		adapter, err = buildAdapter(x, tau, offset, opts)
		if err != nil {
			return nil, err
		}
	}

	// --- 3. Virtual outputs for chance-level calibration ---
	if opts.NVirtOut > 0 {
		y = AddVirtualOutputs(y, opts.NVirtOut)
	} else {
		y = y.Clone()
	}

	// --- 4. Train/test split ---
	split, err := NewSplit(x.Shape[0], opts.TestIdx)
	if err != nil {
		return nil, err
	}
	xTrain := x.SelectRows(split.TrainMask)
	yTrain := y.SelectRows(split.TrainMask)

	// --- 5. Fit: grid search, cross-validation, or a plain overfit ---
	var res *fit.CVResult
	if opts.CV {
		if len(opts.TunedParams) > 0 {
			if _, err := RunGridSearch(adapter, xTrain, yTrain, opts.Folds, opts.TunedParams, opts.logw()); err != nil {
				return nil, err
			}
		}
		res, err = adapter.CVFit(xTrain, yTrain, opts.Folds, opts.RetrainOnAll)
		if err != nil {
			return nil, err
		}
	} else {
		internal.Warning("cv disabled: fitting and scoring on the same trials overfits")
		if err := adapter.Fit(xTrain, yTrain); err != nil {
			return nil, err
		}
		fy, err := adapter.Predict(x, y)
		if err != nil {
			return nil, err
		}
		res = &fit.CVResult{Estimator: fy, RawEstimator: fy}
	}

	// --- 6. Splice held-out predictions into a full out-of-sample tensor ---
	rawFy := res.RawEstimator
	if opts.CV {
		rawFy, err = spliceTestScores(adapter, rawFy, x, y, split)
		if err != nil {
			return nil, err
		}
	}

	// --- 7+8. Summary score and decoding curve ---
	score := adapter.Score(rawFy)
	curve := decode.Supervised(rawFy, adapter.Decoding())
	fmt.Fprintf(opts.logw(), "score=%.4f\n", score)

	return &schema.AnalysisResult{
		Score:  score,
		Curve:  curve,
		Scores: rawFy,
		Model:  adapter.Summary(),
		Diagnostics: schema.Diagnostics{
			AllScores:  rawFy,
			FoldScores: res.FoldScores,
			TrainIdx:   split.TrainIdx(),
			TestIdx:    split.TestIdx(),
		},
	}, nil
}

// spliceTestScores predicts the held-out trials with the (fold-trained)
// adapter and merges them with the cross-validated training scores into one
// tensor covering every trial. Positions belonging to trials in neither set
// stay NaN so the curve evaluator skips them.
func spliceTestScores(adapter fit.Model, trainFy *schema.RawScores, x, y *schema.Tensor, split *Split) (*schema.RawScores, error) {
	if !split.HasTest() {
		return trainFy, nil
	}
	testFy, err := adapter.Predict(x.SelectRows(split.TestMask), y.SelectRows(split.TestMask))
	if err != nil {
		return nil, fmt.Errorf("held-out prediction: %w", err)
	}

	nTrials := len(split.TrainMask)
	full := schema.NewRawScores(trainFy.NModels(), nTrials, trainFy.NSamples(), trainFy.NOutputs())
	full.FillNaN()
	for i, tr := 0, 0; tr < nTrials; tr++ {
		if split.TrainMask[tr] {
			full.CopyTrial(tr, trainFy, i)
			i++
		}
	}
	// The test predictions carry a size-1 model axis; broadcast across the
	// candidate models so marginalization still works.
	for m := 0; m < full.NModels(); m++ {
		for i, tr := 0, 0; tr < nTrials; tr++ {
			if !split.TestMask[tr] {
				continue
			}
			n := full.NSamples() * full.NOutputs()
			base := (m*nTrials + tr) * n
			obase := i * n
			copy(full.Data[base:base+n], testFy.Data[obase:obase+n])
			i++
		}
	}
	return full, nil
}

// buildAdapter constructs the model named by the options, with the window
// already converted to samples.
func buildAdapter(x *schema.Tensor, tau, offset int, opts AnalysisOptions) (fit.Model, error) {
	return fit.New(opts.Model, fit.Options{
		Tau:     tau,
		Offset:  offset,
		EvtLabs: opts.EvtLabs,
		Center:  opts.Center,
		Rank:    opts.Rank,
		Ranks:   opts.Ranks,
		C:       regularizerFromScale(x),
	})
}

// regularizerFromScale derives the generic-linear regularization strength
// from the signal scale: C = 0.1 / sqrt(mean(X^2)).
func regularizerFromScale(x *schema.Tensor) float64 {
	ms := x.MeanSquare()
	if ms <= 0 {
		return 1
	}
	return 0.1 / math.Sqrt(ms)
}

// AnalyseDatasets fans the per-file analysis out over every recording of a
// named dataset and aggregates scores and curves by arithmetic mean.
func AnalyseDatasets(ctx context.Context, ds *contract.Dataset, pre contract.PreprocessFunc, opts AnalysisOptions) (*schema.DatasetResult, error) {
	out := &schema.DatasetResult{Dataset: ds.Name}
	for i, filename := range ds.Filenames {
		fmt.Fprintf(opts.logw(), "%d) %s\n", i, filename)
		x, y, coords, err := ds.Load(ctx, filename)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", schema.ErrDatasetLoad, filename, err)
		}
		if pre != nil {
			x, y, coords, err = pre(x, y, coords)
			if err != nil {
				return nil, fmt.Errorf("preprocess %s: %w", filename, err)
			}
		}
		res, err := AnalyseDataset(x, y, coords, opts)
		if err != nil {
			return nil, fmt.Errorf("analyse %s: %w", filename, err)
		}
		out.Filenames = append(out.Filenames, filename)
		out.Scores = append(out.Scores, res.Score)
		out.Curves = append(out.Curves, res.Curve)
		out.NOutputs = append(out.NOutputs, res.Scores.NOutputs())
	}
	if len(out.Scores) == 0 {
		return nil, fmt.Errorf("%w: dataset %s has no files", schema.ErrDatasetLoad, ds.Name)
	}

	sum := 0.0
	for _, s := range out.Scores {
		sum += s
	}
	out.AveScore = sum / float64(len(out.Scores))
	out.AveCurve = schema.AverageCurves(out.Curves)
	fmt.Fprintf(opts.logw(), "\n--------\n\n Ave-score=%.4f\n", out.AveScore)
	return out, nil
}

// AddVirtualOutputs appends n permuted copies of the stimulus outputs for
// chance-level calibration: virtual output v replays a real output's
// sequence with the trial axis rotated, so it has the same statistics but no
// relation to the recorded brain response. The true output stays at index 0.
func AddVirtualOutputs(y *schema.Tensor, n int) *schema.Tensor {
	nTrials := y.Shape[0]
	outAxis := y.NDim() - 1
	if y.NDim() == 4 {
		outAxis = 2
	}
	nOutputs := y.Shape[outAxis]

	virt := schema.NewTensor(replaceAxis(y.Shape, outAxis, n)...)
	for v := 0; v < n; v++ {
		src := v % nOutputs
		shift := (v / nOutputs) + 1
		for t := 0; t < nTrials; t++ {
			from := (t + shift) % nTrials
			copyOutputColumn(virt, v, t, y, src, from, outAxis)
		}
	}
	if y.NDim() == 4 {
		return concatAxis2(y, virt)
	}
	return schema.ConcatOutputs(y, virt)
}

// copyOutputColumn copies one output's full time course from trial `from` of
// src into trial `to` of dst.
func copyOutputColumn(dst *schema.Tensor, dstOut, to int, src *schema.Tensor, srcOut, from, outAxis int) {
	nSamples := src.Shape[1]
	if src.NDim() == 3 {
		for s := 0; s < nSamples; s++ {
			dst.Set(src.At(from, s, srcOut), to, s, dstOut)
		}
		return
	}
	nEvents := src.Shape[3]
	for s := 0; s < nSamples; s++ {
		for e := 0; e < nEvents; e++ {
			dst.Set(src.At(from, s, srcOut, e), to, s, dstOut, e)
		}
	}
}

// concatAxis2 joins 4-d stimulus tensors along the output axis.
func concatAxis2(a, b *schema.Tensor) *schema.Tensor {
	nTrials, nSamples, nEvents := a.Shape[0], a.Shape[1], a.Shape[3]
	total := a.Shape[2] + b.Shape[2]
	out := schema.NewTensor(nTrials, nSamples, total, nEvents)
	for t := 0; t < nTrials; t++ {
		for s := 0; s < nSamples; s++ {
			for o := 0; o < a.Shape[2]; o++ {
				for e := 0; e < nEvents; e++ {
					out.Set(a.At(t, s, o, e), t, s, o, e)
				}
			}
			for o := 0; o < b.Shape[2]; o++ {
				for e := 0; e < nEvents; e++ {
					out.Set(b.At(t, s, o, e), t, s, o+a.Shape[2], e)
				}
			}
		}
	}
	return out
}

func replaceAxis(shape []int, axis, size int) []int {
	out := append([]int(nil), shape...)
	out[axis] = size
	return out
}

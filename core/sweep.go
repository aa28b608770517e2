package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/evokedbci/evoked/core/decode"
	"github.com/evokedbci/evoked/internal"
	"github.com/evokedbci/evoked/internal/contract"
	"github.com/evokedbci/evoked/schema"
)

// SweepOptions configures a hyper-parameter sweep over a whole dataset.
type SweepOptions struct {
	Grid     []GridParam
	Analysis AnalysisOptions
	Pre      contract.PreprocessFunc

	// Workers bounds the number of recordings analysed concurrently.
	Workers int

	// OnProgress, when set, is called with the merged per-config results
	// after each recording completes, so partial summaries survive a long
	// sweep being interrupted.
	OnProgress func(results []*schema.SweepConfigResult, completed, total int)
}

// fileSweep is the outcome of sweeping one recording: a score and curve per
// grid configuration, aligned with the enumeration order.
type fileSweep struct {
	filename string
	scores   []float64
	curves   []*schema.DecodingCurve
	err      error
}

// SweepDataset cross-validates every grid configuration on every recording
// of the dataset, fanning recordings out over a worker pool. Recordings that
// fail to load are skipped with a warning rather than aborting the sweep.
// Results are merged per configuration in recording completion order.
func SweepDataset(ctx context.Context, ds *contract.Dataset, opts SweepOptions) ([]*schema.SweepConfigResult, error) {
	configs := enumerateGrid(opts.Grid)
	results := make([]*schema.SweepConfigResult, len(configs))
	for i, cfg := range configs {
		results[i] = &schema.SweepConfigResult{Config: cfg}
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	// Initialize channels based on the final number of recordings.
	fileCh := make(chan string, len(ds.Filenames))
	sweepCh := make(chan fileSweep, len(ds.Filenames))
	var wg sync.WaitGroup

	// Start worker pool
	for range workers {
		wg.Go(func() {
			for f := range fileCh {
				sweepCh <- sweepFile(ctx, ds, f, configs, opts)
			}
		})
	}

	// Send recordings to worker channel
	for _, f := range ds.Filenames {
		fileCh <- f
	}
	close(fileCh)

	// Wait for all workers to finish processing
	go func() {
		wg.Wait()
		close(sweepCh)
	}()

	// Merge in completion order
	completed := 0
	for fs := range sweepCh {
		completed++
		if fs.err != nil {
			internal.Warning("skipping %s: %v", fs.filename, fs.err)
			continue
		}
		for i := range configs {
			results[i].Filenames = append(results[i].Filenames, fs.filename)
			results[i].Scores = append(results[i].Scores, fs.scores[i])
			results[i].Curves = append(results[i].Curves, fs.curves[i])
		}
		if opts.OnProgress != nil {
			opts.OnProgress(results, completed, len(ds.Filenames))
		}
	}

	if len(results[0].Scores) == 0 && len(configs) > 0 {
		return nil, fmt.Errorf("%w: no recording of %s survived the sweep", schema.ErrDatasetLoad, ds.Name)
	}
	return results, nil
}

// sweepFile evaluates every configuration on one recording. The recording is
// loaded once; each configuration gets a freshly built adapter so settings
// cannot leak between grid points.
func sweepFile(ctx context.Context, ds *contract.Dataset, filename string, configs []map[string]float64, opts SweepOptions) fileSweep {
	out := fileSweep{filename: filename}

	x, y, coords, err := ds.Load(ctx, filename)
	if err != nil {
		out.err = fmt.Errorf("%w: %v", schema.ErrDatasetLoad, err)
		return out
	}
	if opts.Pre != nil {
		x, y, coords, err = opts.Pre(x, y, coords)
		if err != nil {
			out.err = fmt.Errorf("preprocess: %w", err)
			return out
		}
	}

	aopts := opts.Analysis
	fs := aopts.Fs
	if fs <= 0 {
		fs = schema.SampleRate(coords)
	}
	if fs <= 0 {
		out.err = schema.ErrMissingSampleRate
		return out
	}
	tau := int(aopts.TauMs * fs / 1000)
	if tau < 1 {
		tau = 1
	}
	offset := int(aopts.OffsetMs * fs / 1000)

	if aopts.NVirtOut > 0 {
		y = AddVirtualOutputs(y, aopts.NVirtOut)
	}

	for _, cfg := range configs {
		adapter, err := buildAdapter(x, tau, offset, aopts)
		if err != nil {
			out.err = err
			return out
		}
		if err := applyConfig(adapter, opts.Grid, cfg); err != nil {
			out.err = err
			return out
		}
		res, err := adapter.CVFit(x, y, aopts.Folds, false)
		if err != nil {
			out.err = fmt.Errorf("config %v: %w", cfg, err)
			return out
		}
		out.scores = append(out.scores, adapter.Score(res.RawEstimator))
		out.curves = append(out.curves, decode.Supervised(res.RawEstimator, adapter.Decoding()))
	}
	return out
}

// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/evokedbci/evoked/schema"
)

// LoadFunc reads one recording of a dataset: the EEG tensor, the stimulus
// tensor, and the axis coordinates (which carry the sample rate).
type LoadFunc func(ctx context.Context, filename string) (x, y *schema.Tensor, coords []schema.Coord, err error)

// PreprocessFunc transforms a loaded recording before analysis. It may
// change shapes (resampling, channel selection) as long as the returned
// coordinates describe the result.
type PreprocessFunc func(x, y *schema.Tensor, coords []schema.Coord) (*schema.Tensor, *schema.Tensor, []schema.Coord, error)

// Dataset is a named collection of recordings with a uniform loader.
type Dataset struct {
	Name      string
	Filenames []string
	Load      LoadFunc
}

// ResultStore defines the interface for tracking analysis runs and storing
// per-recording results. This allows the store to be mocked for testing.
type ResultStore interface {
	// BeginRun creates a new analysis run and returns its unique ID
	BeginRun(startTime time.Time, configParams map[string]any) (int64, error)

	// EndRun updates the analysis run with completion data
	EndRun(runID int64, endTime time.Time, totalFiles int) error

	// RecordFileResult stores the summary score and curve for one recording
	RecordFileResult(runID int64, dataset, filename string, score float64, curve *schema.DecodingCurve, model schema.ModelSummary) error

	// GetStatus returns status information about the result store
	GetStatus() (schema.StoreStatus, error)

	// Close closes the underlying connection
	Close() error
}

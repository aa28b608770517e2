package schema

import "errors"

// Sentinel errors for the analysis pipeline. Callers wrap these with the
// offending file or configuration via fmt.Errorf and %w.
var (
	// ErrMissingSampleRate means neither coordinate metadata nor an explicit
	// argument supplied a sample rate, so millisecond arguments cannot be
	// converted to samples.
	ErrMissingSampleRate = errors.New("no sample rate in coordinates or arguments")

	// ErrUnknownModel means a model token was not recognized.
	ErrUnknownModel = errors.New("unknown model")

	// ErrInsufficientData means there were too few trials for the requested
	// fold count or model rank.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrOverlappingSplit means a fold's train and test trial sets overlap.
	ErrOverlappingSplit = errors.New("train and test indices overlap")

	// ErrDatasetLoad means a dataset file could not be loaded. Sweeps catch
	// this per-file and skip; single-file analyses propagate it.
	ErrDatasetLoad = errors.New("dataset load failed")
)

// Package parquet provides data structures and functions for reading stored
// EEG recordings and exporting analysis data to Parquet files using
// github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/evokedbci/evoked/schema"
)

// RecordingRow is the flat row format for stored recordings: one row per
// (trial, sample) with the EEG channels and stimulus outputs as repeated
// columns. The sample rate is carried redundantly on every row so a file is
// self-describing.
type RecordingRow struct {
	// Trial is the zero-based trial index of this row
	Trial int32 `parquet:"trial,snappy"`

	// Sample is the zero-based sample index within the trial
	Sample int32 `parquet:"sample,snappy"`

	// Fs is the sampling rate in Hz
	Fs float64 `parquet:"fs,snappy"`

	// EEG holds one value per channel at this sample
	EEG []float64 `parquet:"eeg"`

	// Stim holds one stimulus level per output at this sample
	Stim []float64 `parquet:"stim"`
}

// RunExport represents a single analysis run with metadata.
// This struct maps to the evoked_runs database table.
type RunExport struct {
	// RunID is the unique identifier for this analysis run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the analysis began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the analysis completed (nullable, stored as TIMESTAMP with nanosecond precision)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the analysis run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// TotalFiles is the number of recordings analysed in this run
	TotalFiles int32 `parquet:"total_files,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// FileResultExport represents the score and decoding curve of a single
// recording in a run. This struct maps to the evoked_file_results table.
type FileResultExport struct {
	// RunID references the parent analysis run
	RunID int64 `parquet:"run_id,snappy"`

	// Dataset is the dataset the recording belongs to
	Dataset string `parquet:"dataset,snappy"`

	// Filename is the recording identifier within the dataset
	Filename string `parquet:"filename,snappy"`

	// AnalysisTime is when this recording was analysed
	AnalysisTime time.Time `parquet:"analysis_time,snappy"`

	// Model is the model token the adapter was built from
	Model string `parquet:"model,snappy"`

	// Score is the area-under-decoding-curve summary in [0,1]
	Score float64 `parquet:"score,snappy"`

	// Lengths are the integration lengths of the decoding curve, in samples
	Lengths []int32 `parquet:"lengths"`

	// ProbErr is the decoding error probability at each integration length
	ProbErr []float64 `parquet:"prob_err"`
}

// ReadRecording decodes one stored recording into dense trial tensors plus
// coordinates carrying the sample rate.
func ReadRecording(filename string) (*schema.Tensor, *schema.Tensor, []schema.Coord, error) {
	rows, err := parquet.ReadFile[RecordingRow](filename)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to read recording: %w", err)
	}
	return RowsToTensors(rows)
}

// WriteRecording encodes one recording as a flat row stream. x is
// (trial, sample, channel), y is (trial, sample, output).
func WriteRecording(x, y *schema.Tensor, fs float64, outputPath string) error {
	nTrials, nSamples := x.Shape[0], x.Shape[1]
	nChannels, nOutputs := x.Shape[2], y.Shape[2]

	rows := make([]RecordingRow, 0, nTrials*nSamples)
	for t := 0; t < nTrials; t++ {
		for s := 0; s < nSamples; s++ {
			row := RecordingRow{
				Trial:  int32(t),
				Sample: int32(s),
				Fs:     fs,
				EEG:    make([]float64, nChannels),
				Stim:   make([]float64, nOutputs),
			}
			for c := 0; c < nChannels; c++ {
				row.EEG[c] = x.At(t, s, c)
			}
			for o := 0; o < nOutputs; o++ {
				row.Stim[o] = y.At(t, s, o)
			}
			rows = append(rows, row)
		}
	}
	return writeRows(rows, outputPath)
}

// RowsToTensors reassembles the flat row stream into dense trial tensors.
// Every trial must carry the same number of samples.
func RowsToTensors(rows []RecordingRow) (*schema.Tensor, *schema.Tensor, []schema.Coord, error) {
	if len(rows) == 0 {
		return nil, nil, nil, fmt.Errorf("recording has no rows")
	}
	nTrials, nSamples := 0, 0
	for _, r := range rows {
		if int(r.Trial) >= nTrials {
			nTrials = int(r.Trial) + 1
		}
		if int(r.Sample) >= nSamples {
			nSamples = int(r.Sample) + 1
		}
	}
	nChannels, nOutputs := len(rows[0].EEG), len(rows[0].Stim)
	if nChannels == 0 || nOutputs == 0 {
		return nil, nil, nil, fmt.Errorf("rows carry no channels or outputs")
	}
	if len(rows) != nTrials*nSamples {
		return nil, nil, nil, fmt.Errorf("%d rows do not tile %d trials x %d samples", len(rows), nTrials, nSamples)
	}

	x := schema.NewTensor(nTrials, nSamples, nChannels)
	y := schema.NewTensor(nTrials, nSamples, nOutputs)
	for _, r := range rows {
		if len(r.EEG) != nChannels || len(r.Stim) != nOutputs {
			return nil, nil, nil, fmt.Errorf("ragged row at trial %d sample %d", r.Trial, r.Sample)
		}
		for c, v := range r.EEG {
			x.Set(v, int(r.Trial), int(r.Sample), c)
		}
		for o, v := range r.Stim {
			y.Set(v, int(r.Trial), int(r.Sample), o)
		}
	}
	coords := []schema.Coord{
		{Name: "trial"},
		{Name: "time", Fs: rows[0].Fs},
		{Name: "channel"},
	}
	return x, y, coords, nil
}

// WriteRunsParquet writes a slice of RunExport structs to a Parquet file.
func WriteRunsParquet(data []RunExport, outputPath string) error {
	return writeRows(data, outputPath)
}

// WriteFileResultsParquet writes a slice of FileResultExport structs to a Parquet file.
func WriteFileResultsParquet(data []FileResultExport, outputPath string) error {
	return writeRows(data, outputPath)
}

// writeRows writes any row slice to a Parquet file using struct schema
// inference from the row type's tags.
func writeRows[T any](data []T, outputPath string) error {
	// Create the output file
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Create a Parquet writer using struct schema inference
	writer := parquet.NewGenericWriter[T](file)
	defer func() { _ = writer.Close() }()

	// Write all records to the file
	if _, err := writer.Write(data); err != nil {
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}

	return nil
}

// RunExportFromRecord converts a stored run record into its export row.
func RunExportFromRecord(rec schema.RunRecord) RunExport {
	out := RunExport{
		RunID:      rec.RunID,
		StartTime:  rec.StartTime,
		EndTime:    rec.EndTime,
		TotalFiles: int32(rec.TotalFiles),
	}
	if rec.EndTime != nil {
		ms := int32(rec.EndTime.Sub(rec.StartTime).Milliseconds())
		out.RunDurationMs = &ms
	}
	if rec.ConfigParams != "" {
		params := rec.ConfigParams
		out.ConfigParams = &params
	}
	return out
}

// FileResultExportFromRecord converts a stored file result into its export row.
func FileResultExportFromRecord(rec schema.FileResultRecord) FileResultExport {
	lengths := make([]int32, len(rec.Lengths))
	for i, l := range rec.Lengths {
		lengths[i] = int32(l)
	}
	return FileResultExport{
		RunID:        rec.RunID,
		Dataset:      rec.Dataset,
		Filename:     rec.Filename,
		AnalysisTime: rec.AnalysisTime,
		Model:        rec.Model,
		Score:        rec.Score,
		Lengths:      lengths,
		ProbErr:      rec.ProbErr,
	}
}

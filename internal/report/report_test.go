package report

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evokedbci/evoked/internal/contract"
	"github.com/evokedbci/evoked/schema"
)

func testConfig() *contract.Config {
	return &contract.Config{
		Output:    schema.TextOut,
		Precision: 4,
		Width:     120,
		Fs:        100,
	}
}

func testDatasetResult() *schema.DatasetResult {
	curve := &schema.DecodingCurve{
		IntegrationLengths: []int{10, 20},
		ProbErr:            []float64{0.5, 0.2},
		ProbErrEst:         []float64{0.4, 0.25},
		StdErr:             []float64{0.1, 0.05},
		TrialCounts:        []int{8, 8},
	}
	return &schema.DatasetResult{
		Dataset:   "sim",
		Filenames: []string{"sim_00", "sim_01"},
		Scores:    []float64{0.8, 0.9},
		Curves:    []*schema.DecodingCurve{curve, curve},
		AveScore:  0.85,
		AveCurve:  curve,
	}
}

func TestWriteDatasetResultsTable(t *testing.T) {
	cfg := testConfig()
	cfg.OutputFile = filepath.Join(t.TempDir(), "out.txt")

	rw := NewWriter()
	require.NoError(t, rw.WriteDatasetResults(testDatasetResult(), cfg, time.Second))

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "sim_00")
	assert.Contains(t, out, "0.8500")
	assert.Contains(t, out, "Average")
	assert.Contains(t, out, "Perr")
}

func TestWriteDatasetResultsCSV(t *testing.T) {
	cfg := testConfig()
	cfg.Output = schema.CSVOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "out.csv")

	rw := NewWriter()
	require.NoError(t, rw.WriteDatasetResults(testDatasetResult(), cfg, time.Second))

	f, err := os.Open(cfg.OutputFile)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 4) // header + 2 recordings + average
	assert.Equal(t, []string{"recording", "score", "grade"}, records[0])
	assert.Equal(t, []string{"sim_00", "0.8000", "Good"}, records[1])
	assert.Equal(t, "average", records[3][0])
}

func TestFormatConfig(t *testing.T) {
	assert.Equal(t, "(defaults)", FormatConfig(nil))
	got := FormatConfig(map[string]float64{"priorweight": 120, "softmaxscale": 2})
	assert.Equal(t, "priorweight=120 softmaxscale=2", got)
}

func TestFormatCurve(t *testing.T) {
	curve := &schema.DecodingCurve{
		IntegrationLengths: []int{10, 20},
		ProbErr:            []float64{0.5, 0.125},
	}
	out := FormatCurve(curve)
	assert.Contains(t, out, "IntLen")
	assert.Contains(t, out, "10")
	assert.Contains(t, out, "0.125")

	assert.Equal(t, "(empty curve)\n", FormatCurve(nil))
}

func TestWriteSweepSummaryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sweep.res")
	results := []*schema.SweepConfigResult{
		{
			Config:    map[string]float64{"softmaxscale": 2},
			Filenames: []string{"sim_00"},
			Scores:    []float64{0.75},
			Curves: []*schema.DecodingCurve{{
				IntegrationLengths: []int{10},
				ProbErr:            []float64{0.3},
			}},
		},
	}
	require.NoError(t, WriteSweepSummaryFile(path, results))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "softmaxscale=2")
	assert.Contains(t, out, "0.7500")
	assert.Contains(t, out, "sim_00")
	assert.Contains(t, out, "IntLen")
}

func TestWriteSweepResults(t *testing.T) {
	cfg := testConfig()
	cfg.OutputFile = filepath.Join(t.TempDir(), "sweep.txt")

	results := []*schema.SweepConfigResult{
		{Config: map[string]float64{"softmaxscale": 1}, Scores: []float64{0.6, 0.7}},
		{Config: map[string]float64{"softmaxscale": 2}, Scores: []float64{0.8, 0.9}},
	}
	rw := NewWriter()
	require.NoError(t, rw.WriteSweepResults(results, cfg, time.Second))

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "best 0.8500 for softmaxscale=2")
}

func TestWriteRuns(t *testing.T) {
	end := time.Now()
	runs := []schema.RunRecord{
		{RunID: 1, StartTime: end.Add(-time.Minute), EndTime: &end, TotalFiles: 2, ConfigParams: `{"model":"cca"}`},
		{RunID: 2, StartTime: end},
	}
	var buf bytes.Buffer
	rw := NewWriter()
	require.NoError(t, rw.WriteRuns(runs, testConfig(), &buf))
	assert.Contains(t, buf.String(), "cca")
	assert.Contains(t, buf.String(), "-") // run 2 has no duration yet
}

func TestDefaultArtifactNames(t *testing.T) {
	assert.Equal(t, "hpsearch_sim.res", DefaultSweepSummaryFile("sim"))
	assert.Equal(t, "sim_decoding_curve.png", DefaultPlotFile("sim"))
}

func TestSaveCurvePlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.png")
	curve := &schema.DecodingCurve{
		IntegrationLengths: []int{10, 20, 30},
		ProbErr:            []float64{0.6, 0.3, 0.1},
	}
	require.NoError(t, SaveCurvePlot([]*schema.DecodingCurve{curve}, curve, 100, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestWriteLearningCurve(t *testing.T) {
	cfg := testConfig()
	cfg.OutputFile = filepath.Join(t.TempDir(), "learn.txt")

	rw := NewWriter()
	err := rw.WriteLearningCurve(
		[]string{"Trn 4 (0-3) / Tst 8 (4-11)", "Trn 8 (0-7) / Tst 4 (8-11)"},
		[]float64{0.6, 0.8},
		&schema.DecodingCurve{IntegrationLengths: []int{10}, ProbErr: []float64{0.2}},
		cfg, time.Second)
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Trn 4 (0-3)")
	assert.Contains(t, string(data), "0.7000") // average
}

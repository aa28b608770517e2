// Package report renders analysis results as tables, CSV, parquet files and
// decoding-curve plots.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/evokedbci/evoked/internal/contract"
	parquetio "github.com/evokedbci/evoked/internal/parquet"
	"github.com/evokedbci/evoked/schema"
)

// Writer provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type Writer struct{}

// NewWriter creates a new instance of the output writer.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteDatasetResults prints per-recording scores and the dataset average
// using the configured output format.
func (rw *Writer) WriteDatasetResults(res *schema.DatasetResult, cfg *contract.Config, duration time.Duration) error {
	w, err := contract.SelectOutputFile(cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("error opening output file: %w", err)
	}
	if cfg.OutputFile != "" {
		defer func() { _ = w.Close() }()
	}

	switch cfg.Output {
	case schema.CSVOut:
		csvWriter := csv.NewWriter(w)
		defer csvWriter.Flush()
		return writeCSVDatasetResults(csvWriter, res, cfg)
	case schema.ParquetOut:
		return writeParquetDatasetResults(res, cfg)
	default:
		// Default to human-readable table
		return writeDatasetTable(res, cfg, duration, w)
	}
}

// writeDatasetTable writes one row per recording plus the dataset average.
func writeDatasetTable(res *schema.DatasetResult, cfg *contract.Config, duration time.Duration, writer io.Writer) error {
	printHeader(writer, cfg, fmt.Sprintf("Dataset %s (%d recordings, %.1fs)",
		res.Dataset, len(res.Filenames), duration.Seconds()))

	table := tablewriter.NewWriter(writer)

	headers := []string{"#", "Recording", "Score", "Grade"}
	table.Header(headers)

	// Right-align the numeric columns
	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})

	label := contract.GetPlainLabel
	if cfg.UseColors {
		label = contract.GetColorLabel
	}
	for i, filename := range res.Filenames {
		row := []string{
			strconv.Itoa(i + 1),
			contract.TruncatePath(filename, maxTablePathWidth(cfg)),
			fmt.Sprintf("%.*f", cfg.Precision, res.Scores[i]),
			label(res.Scores[i]),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("error appending table row: %w", err)
		}
	}
	if err := table.Append([]string{"", "Average", fmt.Sprintf("%.*f", cfg.Precision, res.AveScore), label(res.AveScore)}); err != nil {
		return fmt.Errorf("error appending table row: %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("error rendering table: %w", err)
	}

	if res.AveCurve != nil && !res.AveCurve.Empty() {
		fmt.Fprintln(writer)
		return writeCurveTable(res.AveCurve, cfg, writer)
	}
	return nil
}

// writeCSVDatasetResults writes the per-recording scores in CSV format.
func writeCSVDatasetResults(w *csv.Writer, res *schema.DatasetResult, cfg *contract.Config) error {
	// Write header
	header := []string{"recording", "score", "grade"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write each recording
	for i, filename := range res.Filenames {
		record := []string{
			filename,
			strconv.FormatFloat(res.Scores[i], 'f', cfg.Precision, 64),
			contract.GetPlainLabel(res.Scores[i]),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	// Trailing average row
	record := []string{
		"average",
		strconv.FormatFloat(res.AveScore, 'f', cfg.Precision, 64),
		contract.GetPlainLabel(res.AveScore),
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("failed to write CSV record: %w", err)
	}
	return nil
}

// writeParquetDatasetResults exports per-recording results as a parquet file.
func writeParquetDatasetResults(res *schema.DatasetResult, cfg *contract.Config) error {
	path := cfg.OutputFile
	if path == "" {
		path = fmt.Sprintf("%s_results.parquet", res.Dataset)
	}
	now := time.Now()

	rows := make([]parquetio.FileResultExport, 0, len(res.Filenames))
	for i, filename := range res.Filenames {
		rec := schema.FileResultRecord{
			Dataset:      res.Dataset,
			Filename:     filename,
			AnalysisTime: now,
			Model:        string(cfg.Model),
			Score:        res.Scores[i],
		}
		if res.Curves[i] != nil {
			rec.Lengths = res.Curves[i].IntegrationLengths
			rec.ProbErr = res.Curves[i].ProbErr
		}
		rows = append(rows, parquetio.FileResultExportFromRecord(rec))
	}
	return parquetio.WriteFileResultsParquet(rows, path)
}

// WriteRuns prints stored analysis runs as a table.
func (rw *Writer) WriteRuns(runs []schema.RunRecord, cfg *contract.Config, w io.Writer) error {
	printHeader(w, cfg, fmt.Sprintf("Stored runs (%d)", len(runs)))

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Run", "Started", "Duration", "Recordings", "Config"})
	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})

	for _, run := range runs {
		duration := "-"
		if run.EndTime != nil {
			duration = run.EndTime.Sub(run.StartTime).Round(time.Millisecond).String()
		}
		row := []string{
			strconv.FormatInt(run.RunID, 10),
			run.StartTime.Format(time.RFC3339),
			duration,
			strconv.Itoa(run.TotalFiles),
			run.ConfigParams,
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("error appending table row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("error rendering table: %w", err)
	}
	return nil
}

// WriteStatus prints result-store status information.
func (rw *Writer) WriteStatus(status schema.StoreStatus, cfg *contract.Config, w io.Writer) error {
	printHeader(w, cfg, "Result store status")

	fmt.Fprintf(w, "Backend:    %s\n", status.Backend)
	fmt.Fprintf(w, "Connected:  %v\n", status.Connected)
	fmt.Fprintf(w, "Total runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		fmt.Fprintf(w, "Last run:   #%d at %s\n", status.LastRunID, status.LastRunTime.Format(time.RFC3339))
		fmt.Fprintf(w, "Oldest run: %s\n", status.OldestRunTime.Format(time.RFC3339))
		fmt.Fprintf(w, "Recordings: %d\n", status.TotalFiles)
	}
	for table, size := range status.TableSizes {
		fmt.Fprintf(w, "Table %s: %d rows\n", table, size)
	}
	return nil
}

// printHeader writes a section header, with emoji when enabled.
func printHeader(w io.Writer, cfg *contract.Config, title string) {
	if cfg.UseEmojis {
		fmt.Fprintf(w, "🧠 %s\n", title)
	} else {
		fmt.Fprintf(w, "%s\n", title)
	}
}

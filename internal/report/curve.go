package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/evokedbci/evoked/internal/contract"
	"github.com/evokedbci/evoked/schema"
)

// writeCurveTable renders a decoding curve with one column per integration
// length: the length in samples (and seconds when the rate is known), the
// measured error probability, the model's own error estimate, and the trial
// count behind each column.
func writeCurveTable(curve *schema.DecodingCurve, cfg *contract.Config, w io.Writer) error {
	table := tablewriter.NewWriter(w)

	headers := []string{""}
	for _, l := range curve.IntegrationLengths {
		headers = append(headers, strconv.Itoa(l))
	}
	table.Header(headers)
	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})

	rows := [][]string{
		formatCurveRow("Perr", curve.ProbErr, cfg.Precision),
		formatCurveRow("PerrEst", curve.ProbErrEst, cfg.Precision),
		formatCurveRow("StdErr", curve.StdErr, cfg.Precision),
	}
	if cfg.Fs > 0 {
		secs := make([]float64, len(curve.IntegrationLengths))
		for i, l := range curve.IntegrationLengths {
			secs[i] = float64(l) / cfg.Fs
		}
		rows = append([][]string{formatCurveRow("Seconds", secs, 2)}, rows...)
	}
	counts := []string{"N"}
	for _, n := range curve.TrialCounts {
		counts = append(counts, strconv.Itoa(n))
	}
	rows = append(rows, counts)

	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("error appending table row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("error rendering table: %w", err)
	}
	return nil
}

func formatCurveRow(name string, values []float64, precision int) []string {
	row := []string{name}
	for _, v := range values {
		if math.IsNaN(v) {
			row = append(row, "-")
			continue
		}
		row = append(row, strconv.FormatFloat(v, 'f', precision, 64))
	}
	return row
}

// FormatCurve renders a decoding curve as aligned plain-text lines, the
// compact form used in sweep summary files and logs.
func FormatCurve(curve *schema.DecodingCurve) string {
	if curve == nil || curve.Empty() {
		return "(empty curve)\n"
	}
	out := "IntLen"
	for _, l := range curve.IntegrationLengths {
		out += fmt.Sprintf(" %6d", l)
	}
	out += "\nPerr  "
	for _, p := range curve.ProbErr {
		out += fmt.Sprintf(" %6.3f", p)
	}
	out += "\n"
	return out
}

// WriteLearningCurve prints the growing-training-window results: one row per
// split plus the average over splits.
func (rw *Writer) WriteLearningCurve(labels []string, scores []float64, aveCurve *schema.DecodingCurve, cfg *contract.Config, duration time.Duration) error {
	w, err := contract.SelectOutputFile(cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("error opening output file: %w", err)
	}
	if cfg.OutputFile != "" {
		defer func() { _ = w.Close() }()
	}

	printHeader(w, cfg, fmt.Sprintf("Learning curve (%d splits, %.1fs)", len(labels), duration.Seconds()))

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Split", "Score", "Grade"})
	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})

	label := contract.GetPlainLabel
	if cfg.UseColors {
		label = contract.GetColorLabel
	}
	sum := 0.0
	for i, name := range labels {
		sum += scores[i]
		row := []string{name, fmt.Sprintf("%.*f", cfg.Precision, scores[i]), label(scores[i])}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("error appending table row: %w", err)
		}
	}
	if len(scores) > 0 {
		ave := sum / float64(len(scores))
		if err := table.Append([]string{"Average", fmt.Sprintf("%.*f", cfg.Precision, ave), label(ave)}); err != nil {
			return fmt.Errorf("error appending table row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("error rendering table: %w", err)
	}

	if aveCurve != nil && !aveCurve.Empty() {
		fmt.Fprintln(w)
		return writeCurveTable(aveCurve, cfg, w)
	}
	return nil
}

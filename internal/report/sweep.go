package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"gonum.org/v1/gonum/stat"

	"github.com/evokedbci/evoked/internal/contract"
	"github.com/evokedbci/evoked/schema"
)

// WriteSweepResults prints one row per hyper-parameter configuration with
// its mean score over recordings.
func (rw *Writer) WriteSweepResults(results []*schema.SweepConfigResult, cfg *contract.Config, duration time.Duration) error {
	w, err := contract.SelectOutputFile(cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("error opening output file: %w", err)
	}
	if cfg.OutputFile != "" {
		defer func() { _ = w.Close() }()
	}

	printHeader(w, cfg, fmt.Sprintf("Sweep over %d configurations (%.1fs)", len(results), duration.Seconds()))

	table := tablewriter.NewWriter(w)
	table.Header([]string{"Config", "Mean", "Std", "N", "Grade"})
	table.Configure(func(tcfg *tablewriter.Config) {
		tcfg.Row.Alignment.Global = tw.AlignRight
	})

	label := contract.GetPlainLabel
	if cfg.UseColors {
		label = contract.GetColorLabel
	}
	bestIdx, bestMean := -1, 0.0
	for i, res := range results {
		mean, std := meanStd(res.Scores)
		if bestIdx < 0 || mean > bestMean {
			bestIdx, bestMean = i, mean
		}
		row := []string{
			FormatConfig(res.Config),
			fmt.Sprintf("%.*f", cfg.Precision, mean),
			fmt.Sprintf("%.*f", cfg.Precision, std),
			fmt.Sprintf("%d", len(res.Scores)),
			label(mean),
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("error appending table row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("error rendering table: %w", err)
	}

	if bestIdx >= 0 {
		fmt.Fprintf(w, "\nbest %.*f for %s\n", cfg.Precision, bestMean, FormatConfig(results[bestIdx].Config))
	}
	return nil
}

// DefaultSweepSummaryFile names the persisted sweep summary for a dataset.
func DefaultSweepSummaryFile(dataset string) string {
	return fmt.Sprintf("hpsearch_%s.res", dataset)
}

// WriteSweepSummaryFile writes the per-configuration sweep summary to a
// plain-text file. It is rewritten after every completed recording so a long
// sweep leaves usable partial results behind when interrupted.
func WriteSweepSummaryFile(path string, results []*schema.SweepConfigResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating sweep summary file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return writeSweepSummary(f, results)
}

func writeSweepSummary(w io.Writer, results []*schema.SweepConfigResult) error {
	for _, res := range results {
		mean, std := meanStd(res.Scores)
		fmt.Fprintf(w, "%s = %.4f (+/-%.4f) N=%d\n", FormatConfig(res.Config), mean, std, len(res.Scores))
		for i, filename := range res.Filenames {
			fmt.Fprintf(w, "  %s: %.4f\n", filename, res.Scores[i])
		}
		if ave := schema.AverageCurves(res.Curves); ave != nil && !ave.Empty() {
			fmt.Fprint(w, FormatCurve(ave))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// FormatConfig renders a configuration map with sorted keys so output is
// stable across runs.
func FormatConfig(config map[string]float64) string {
	if len(config) == 0 {
		return "(defaults)"
	}
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%g", k, config[k]))
	}
	return strings.Join(parts, " ")
}

func meanStd(scores []float64) (float64, float64) {
	if len(scores) == 0 {
		return 0, 0
	}
	mean, std := stat.MeanStdDev(scores, nil)
	if len(scores) < 2 {
		std = 0
	}
	return mean, std
}

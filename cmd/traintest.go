package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evokedbci/evoked/core"
	"github.com/evokedbci/evoked/internal/contract"
	"github.com/evokedbci/evoked/internal/report"
)

// traintestCmd measures how decoding improves with more calibration trials.
var traintestCmd = &cobra.Command{
	Use:   "traintest [dataset]",
	Short: "Show the learning curve over growing calibration windows.",
	Long: `Estimate how much calibration data the decoder needs. For each growing
training window the model is fitted on the leading trials and scored only on
the trials after the window.

The score of the smallest window tells you how a short calibration session
would perform; the trend tells you whether more calibration still pays off.

Examples:
  # Learning curve over the synthetic dataset, two trials per step
  evoked traintest sim --step 2

  # Learning curve for stored recordings with a ridge decoder
  evoked traintest parquet --data-args dir=./recordings --model ridge`,
	Args:     cobra.MaximumNArgs(1),
	PreRunE:  sharedSetup,
	PostRunE: closeStore,
	Run: func(_ *cobra.Command, _ []string) {
		if err := runTrainTest(); err != nil {
			contract.LogFatal("Cannot run train/test analysis", err)
		}
	},
}

func runTrainTest() error {
	ds, err := contract.GetDataset(cfg.Dataset, cfg.DatasetArgs)
	if err != nil {
		return err
	}

	opts := analysisOptionsFromConfig(cfg)
	writer := report.NewWriter()

	start := time.Now()
	for _, filename := range ds.Filenames {
		x, y, coords, err := ds.Load(rootCtx, filename)
		if err != nil {
			return fmt.Errorf("load %s: %w", filename, err)
		}
		res, err := core.AnalyseTrainTest(x, y, coords, cfg.Step, opts)
		if err != nil {
			return fmt.Errorf("analyse %s: %w", filename, err)
		}
		if err := writer.WriteLearningCurve(res.Labels, res.Scores, res.AveCurve, cfg, time.Since(start)); err != nil {
			return err
		}
	}
	return nil
}

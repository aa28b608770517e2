package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/evokedbci/evoked/internal/contract"
	parquetio "github.com/evokedbci/evoked/internal/parquet"
	"github.com/evokedbci/evoked/schema"
)

// simulateCmd writes synthetic recordings to disk as parquet files.
var simulateCmd = &cobra.Command{
	Use:   "simulate [output-dir]",
	Short: "Generate synthetic recordings as parquet files.",
	Long: `Write the built-in synthetic dataset to disk, one parquet file per
recording, so the 'parquet' dataset and external tools have data to work on.

The generator is seeded, so the same arguments always produce the same
recordings.

Examples:
  # Two default recordings into ./recordings
  evoked simulate ./recordings

  # A larger corpus with low noise
  evoked simulate ./recordings --data-args files=10,trials=20,snr=4`,
	Args:     cobra.MaximumNArgs(1),
	PreRunE:  simulateSetup,
	PostRunE: closeStore,
	Run: func(_ *cobra.Command, args []string) {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}
		if err := runSimulate(dir); err != nil {
			contract.LogFatal("Cannot generate recordings", err)
		}
	},
}

// simulateSetup reuses the shared validation with the dataset pinned to the
// synthetic generator, since the positional argument is the output directory.
func simulateSetup(cmd *cobra.Command, _ []string) error {
	return sharedSetup(cmd, []string{"sim"})
}

func runSimulate(dir string) error {
	ds, err := contract.GetDataset("sim", cfg.DatasetArgs)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	start := time.Now()
	for _, filename := range ds.Filenames {
		x, y, coords, err := ds.Load(rootCtx, filename)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, filename+".parquet")
		if err := parquetio.WriteRecording(x, y, schema.SampleRate(coords), path); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("wrote %s (%d trials, %d samples, %d channels)\n", path, x.Shape[0], x.Shape[1], x.Shape[2])
	}
	fmt.Printf("generated %d recordings in %.1fs\n", len(ds.Filenames), time.Since(start).Seconds())
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evokedbci/evoked/internal/contract"
	parquetio "github.com/evokedbci/evoked/internal/parquet"
	"github.com/evokedbci/evoked/internal/report"
)

// runsCmd lists stored analysis runs.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List analysis runs stored in the result backend.",
	Long: `Show every tracked analysis run: when it ran, how long it took, how many
recordings it covered, and the configuration it used.

Runs are tracked when an analysis is started with --result-backend sqlite,
mysql, or postgresql. Without an explicit backend this command reads the
local SQLite store.

Examples:
  # List runs from the local SQLite store
  evoked runs

  # List runs from a shared PostgreSQL store
  evoked runs --result-backend postgresql --result-db-connect 'host=db dbname=evoked'`,
	PreRunE:  storeSetup,
	PostRunE: closeStore,
	Run: func(_ *cobra.Command, _ []string) {
		if err := runRunsList(); err != nil {
			contract.LogFatal("Cannot list runs", err)
		}
	},
}

// runsStatusCmd summarizes the result store contents.
var runsStatusCmd = &cobra.Command{
	Use:      "status",
	Short:    "Show result store connection info and table sizes.",
	PreRunE:  storeSetup,
	PostRunE: closeStore,
	Run: func(_ *cobra.Command, _ []string) {
		if err := runRunsStatus(); err != nil {
			contract.LogFatal("Cannot get store status", err)
		}
	},
}

// runsExportCmd exports stored runs and per-recording results to parquet.
var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored runs and recording results to parquet files.",
	Long: `Write two parquet files: evoked_runs.parquet with one row per run, and
evoked_file_results.parquet with one row per analysed recording.

Use --output-file to change the directory or filename prefix.`,
	PreRunE:  storeSetup,
	PostRunE: closeStore,
	Run: func(_ *cobra.Command, _ []string) {
		if err := runRunsExport(); err != nil {
			contract.LogFatal("Cannot export runs", err)
		}
	},
}

// runsClearCmd deletes all stored runs.
var runsClearCmd = &cobra.Command{
	Use:      "clear",
	Short:    "Delete all stored runs and recording results.",
	PreRunE:  storeSetup,
	PostRunE: closeStore,
	Run: func(_ *cobra.Command, _ []string) {
		if err := store.Clear(); err != nil {
			contract.LogFatal("Cannot clear result store", err)
		}
		fmt.Println("Result store cleared.")
	},
}

func runRunsList() error {
	runs, err := store.GetAllRuns()
	if err != nil {
		return err
	}
	return report.NewWriter().WriteRuns(runs, cfg, os.Stdout)
}

func runRunsStatus() error {
	status, err := store.GetStatus()
	if err != nil {
		return err
	}
	return report.NewWriter().WriteStatus(status, cfg, os.Stdout)
}

func runRunsExport() error {
	runs, err := store.GetAllRuns()
	if err != nil {
		return err
	}
	fileResults, err := store.GetAllFileResults()
	if err != nil {
		return err
	}

	prefix := cfg.OutputFile
	if prefix == "" {
		prefix = "."
	}

	runRows := make([]parquetio.RunExport, len(runs))
	for i, rec := range runs {
		runRows[i] = parquetio.RunExportFromRecord(rec)
	}
	runsPath := fmt.Sprintf("%s/evoked_runs.parquet", prefix)
	if err := parquetio.WriteRunsParquet(runRows, runsPath); err != nil {
		return err
	}

	resultRows := make([]parquetio.FileResultExport, len(fileResults))
	for i, rec := range fileResults {
		resultRows[i] = parquetio.FileResultExportFromRecord(rec)
	}
	resultsPath := fmt.Sprintf("%s/evoked_file_results.parquet", prefix)
	if err := parquetio.WriteFileResultsParquet(resultRows, resultsPath); err != nil {
		return err
	}

	fmt.Printf("Exported %d runs to %s and %d results to %s\n", len(runs), runsPath, len(fileResults), resultsPath)
	return nil
}

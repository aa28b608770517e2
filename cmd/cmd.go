// Package cmd defines the command-line interface for evoked.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/evokedbci/evoked/internal/contract"
	"github.com/evokedbci/evoked/schema"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(analyseCmd)
	rootCmd.AddCommand(traintestCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the runs subcommands to the parent runs command
	runsCmd.AddCommand(runsStatusCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsClearCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringP("model", "m", string(schema.ModelCCA), "Model token: cca, bwd, fwd, ridge, lr, svr, svc, linearsklearn")
	rootCmd.PersistentFlags().Float64("tau-ms", contract.DefaultTauMs, "Stimulus-response window length in milliseconds")
	rootCmd.PersistentFlags().Float64("offset-ms", 0, "Response start offset in milliseconds (negative starts before the event)")
	rootCmd.PersistentFlags().Float64("fs", 0, "Sample rate override in Hz when the recording carries none")
	rootCmd.PersistentFlags().String("evtlabs", "", "Comma-separated stimulus event expansion (default re,fe)")
	rootCmd.PersistentFlags().Int("rank", contract.DefaultRank, "Decomposition rank for factored models")
	rootCmd.PersistentFlags().String("ranks", "", "Comma-separated candidate ranks selected by inner cross-validation")
	rootCmd.PersistentFlags().Int("nvirt", 0, "Virtual (permuted) outputs appended for chance calibration")
	rootCmd.PersistentFlags().String("test-trials", "", "Trial indices held out for final evaluation, e.g. '0,2,8-10'")
	rootCmd.PersistentFlags().String("cv", "yes", "Cross-validate model performance (yes/no)")
	rootCmd.PersistentFlags().Int("folds", contract.DefaultFolds, "Number of cross-validation folds")
	rootCmd.PersistentFlags().String("retrain", "yes", "Refit on all training trials after cross-validation (yes/no)")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or parquet")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("data-args", "", "Comma-separated dataset arguments, e.g. 'dir=/data,trials=20'")
	rootCmd.PersistentFlags().String("result-backend", string(schema.NoneBackend), "Run tracking backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("result-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("emoji", "yes", "Enable emojis in output headers (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of analyseCmd to Viper
	analyseCmd.Flags().String("plot-file", "", "Decoding-curve plot path (default <dataset>_decoding_curve.png)")
	if err := viper.BindPFlags(analyseCmd.Flags()); err != nil {
		contract.LogFatal("Error binding analyse flags", err)
	}

	// Bind all flags of traintestCmd to Viper
	traintestCmd.Flags().Int("step", 0, "Training-window growth step in trials (0 = 1 trial per split)")
	if err := viper.BindPFlags(traintestCmd.Flags()); err != nil {
		contract.LogFatal("Error binding traintest flags", err)
	}

	// Bind all flags of sweepCmd to Viper
	sweepCmd.Flags().String("grid", "", "Hyper-parameter grid, e.g. 'softmaxscale=1,2,4;priorweight=0,60,120'")
	if err := viper.BindPFlags(sweepCmd.Flags()); err != nil {
		contract.LogFatal("Error binding sweep flags", err)
	}
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/evokedbci/evoked/internal/contract"
	"github.com/evokedbci/evoked/internal/resultstore"
	"github.com/evokedbci/evoked/schema"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// store tracks analysis runs when a result backend is configured.
var store *resultstore.Store

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "evoked",
	Short:              "Evaluate evoked-response BCI decoders with cross-validated decoding curves.",
	Long:               `Evoked fits stimulus-response decoders to EEG recordings and reports how decoding accuracy grows with integration time.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Set config file name and paths
		viper.SetConfigName(".evoked") // Name of config file (without extension)
		viper.SetConfigType("yaml")    // We'll use YAML format
		viper.AddConfigPath(".")       // Look in the current directory
		viper.AddConfigPath("$HOME")   // Look in the home directory
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("EVOKED")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("model", string(schema.ModelCCA))
	viper.SetDefault("tau-ms", contract.DefaultTauMs)
	viper.SetDefault("rank", contract.DefaultRank)
	viper.SetDefault("cv", "yes")
	viper.SetDefault("retrain", "yes")
	viper.SetDefault("folds", contract.DefaultFolds)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("output", string(schema.TextOut))
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("result-backend", string(schema.NoneBackend))
	viper.SetDefault("result-db-connect", "")
	viper.SetDefault("emoji", "yes")
	viper.SetDefault("color", "yes")
}

// sharedSetup unmarshals config, runs validation, and opens the result store.
func sharedSetup(_ *cobra.Command, args []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	if len(args) == 1 {
		input.DatasetStr = args[0]
	}

	// 4. Run all validation and complex parsing.
	// This function now populates the global 'cfg' from 'input'.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	// 5. Open the result store with the validated backend config.
	var err error
	store, err = resultstore.NewStore(cfg.ResultBackend, cfg.ResultDBConnect)
	if err != nil {
		return fmt.Errorf("failed to initialize result store: %w", err)
	}

	return nil
}

// storeSetup loads only the store-related configuration. It is used by
// commands that inspect or export stored runs without running an analysis.
func storeSetup(_ *cobra.Command, _ []string) error {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	backendStr := viper.GetString("result-backend")
	connStr := viper.GetString("result-db-connect")

	// Run inspection defaults to the local SQLite store rather than none, so
	// "evoked runs" works out of the box after a tracked analysis.
	backend := schema.DatabaseBackend(strings.ToLower(backendStr))
	if backendStr == "" || backend == schema.NoneBackend {
		backend = schema.SQLiteBackend
	}

	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}

	var err error
	store, err = resultstore.NewStore(backend, connStr)
	if err != nil {
		return fmt.Errorf("failed to initialize result store: %w", err)
	}

	cfg.ResultBackend = backend
	cfg.ResultDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")
	cfg.Precision = viper.GetInt("precision")
	emojis, err := contract.ParseBoolString(viper.GetString("emoji"))
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	return nil
}

// closeStore releases the result store after a command finishes.
func closeStore(_ *cobra.Command, _ []string) error {
	if store != nil {
		return store.Close()
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

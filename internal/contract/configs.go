package contract

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/evokedbci/evoked/schema"
)

// Default values for configuration.
const (
	DefaultTauMs     = 300.0
	DefaultFolds     = 5
	DefaultRank      = 1
	DefaultPrecision = 4
	MaxFolds         = 50
)

// DefaultEvtLabs is the default stimulus event expansion.
var DefaultEvtLabs = []string{"re", "fe"}

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// GridAxis is one hyper-parameter axis of a search grid, in declaration
// order so sweeps enumerate deterministically.
type GridAxis struct {
	Name   string
	Values []float64
}

// Config holds the runtime configuration for the analysis.
// This struct remains the "final, validated" config.
type Config struct {
	Dataset     string
	DatasetArgs map[string]string

	Model    schema.ModelName
	TauMs    float64
	OffsetMs float64
	Fs       float64
	EvtLabs  []string
	Rank     int
	Ranks    []int
	NVirtOut int

	TestIdx      []int
	CV           bool
	Folds        int
	RetrainOnAll bool
	Step         int // Growing-window step for learning-curve analysis

	Grid []GridAxis

	Workers    int
	Output     schema.OutputMode
	OutputFile string
	PlotFile   string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)

	ResultBackend   schema.DatabaseBackend
	ResultDBConnect string // Please use env var as this is plaintext

	UseEmojis bool // Enable emojis in output headers
	UseColors bool // Enable colored labels in table output
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	DatasetStr string

	// --- Fields from rootCmd.PersistentFlags() ---
	Model           string  `mapstructure:"model"`
	TauMs           float64 `mapstructure:"tau-ms"`
	OffsetMs        float64 `mapstructure:"offset-ms"`
	Fs              float64 `mapstructure:"fs"`
	EvtLabs         string  `mapstructure:"evtlabs"`
	Rank            int     `mapstructure:"rank"`
	Ranks           string  `mapstructure:"ranks"`
	NVirtOut        int     `mapstructure:"nvirt"`
	TestTrials      string  `mapstructure:"test-trials"`
	CV              string  `mapstructure:"cv"`
	Folds           int     `mapstructure:"folds"`
	Retrain         string  `mapstructure:"retrain"`
	Workers         int     `mapstructure:"workers"`
	Output          string  `mapstructure:"output"`
	OutputFile      string  `mapstructure:"output-file"`
	Precision       int     `mapstructure:"precision"`
	Width           int     `mapstructure:"width"`
	DataArgs        string  `mapstructure:"data-args"`
	ResultBackend   string  `mapstructure:"result-backend"`
	ResultDBConnect string  `mapstructure:"result-db-connect"`
	Emoji           string  `mapstructure:"emoji"`
	Color           string  `mapstructure:"color"`

	// --- Fields from analyseCmd.Flags() ---
	PlotFile string `mapstructure:"plot-file"`

	// --- Fields from traintestCmd.Flags() ---
	Step int `mapstructure:"step"`

	// --- Fields from sweepCmd.Flags() ---
	Grid string `mapstructure:"grid"`
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	// All validation functions read from 'input' and populate 'cfg'.
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processModel(cfg, input); err != nil {
		return err
	}
	if err := processTrials(cfg, input); err != nil {
		return err
	}
	if err := processGrid(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	return nil
}

// validateSimpleInputs processes and validates all non-model related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.Dataset = strings.TrimSpace(input.DatasetStr)
	cfg.OutputFile = input.OutputFile
	cfg.PlotFile = input.PlotFile
	cfg.Width = input.Width
	cfg.Fs = input.Fs
	cfg.OffsetMs = input.OffsetMs

	if cfg.Dataset == "" {
		return fmt.Errorf("a dataset name is required")
	}

	// Parse emoji flag
	emojis, err := ParseBoolString(input.Emoji)
	if err != nil {
		return fmt.Errorf("invalid --emoji value: %w", err)
	}
	cfg.UseEmojis = emojis

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	// --- 1. Workers Validation ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Precision and Output Validation ---
	if input.Precision < 1 || input.Precision > 6 {
		return fmt.Errorf("precision must be between 1 and 6 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, parquet", cfg.Output)
	}

	// --- 3. Dataset args ---
	cfg.DatasetArgs = map[string]string{}
	if input.DataArgs != "" {
		for part := range strings.SplitSeq(input.DataArgs, ",") {
			k, v, found := strings.Cut(strings.TrimSpace(part), "=")
			if !found || k == "" {
				return fmt.Errorf("invalid --data-args entry %q, expected key=value", part)
			}
			cfg.DatasetArgs[k] = v
		}
	}

	return nil
}

// processModel validates the model token and its window parameters.
func processModel(cfg *Config, input *ConfigRawInput) error {
	cfg.Model = schema.ModelName(strings.ToLower(input.Model))
	if cfg.Model == "" {
		cfg.Model = schema.ModelCCA
	}
	if _, ok := schema.ValidModelNames[cfg.Model]; !ok {
		return fmt.Errorf("%w: '%s'. must be one of cca, bwd, fwd, ridge, lr, svr, svc, linearsklearn",
			schema.ErrUnknownModel, input.Model)
	}

	cfg.TauMs = input.TauMs
	if cfg.TauMs <= 0 {
		cfg.TauMs = DefaultTauMs
	}

	cfg.Rank = input.Rank
	if cfg.Rank <= 0 {
		cfg.Rank = DefaultRank
	}
	if input.Ranks != "" {
		ranks, err := ParseIntList(input.Ranks)
		if err != nil {
			return fmt.Errorf("invalid --ranks: %w", err)
		}
		for _, r := range ranks {
			if r < 1 {
				return fmt.Errorf("candidate rank must be at least 1 (received %d)", r)
			}
		}
		cfg.Ranks = ranks
	}

	cfg.EvtLabs = DefaultEvtLabs
	if input.EvtLabs != "" {
		cfg.EvtLabs = nil
		for lab := range strings.SplitSeq(input.EvtLabs, ",") {
			if trimmed := strings.TrimSpace(lab); trimmed != "" {
				cfg.EvtLabs = append(cfg.EvtLabs, trimmed)
			}
		}
	}

	if cfg.NVirtOut = input.NVirtOut; cfg.NVirtOut < 0 {
		return fmt.Errorf("nvirt cannot be negative (received %d)", input.NVirtOut)
	}

	return nil
}

// processTrials validates split and cross-validation parameters.
func processTrials(cfg *Config, input *ConfigRawInput) error {
	cv, err := ParseBoolString(input.CV)
	if err != nil {
		return fmt.Errorf("invalid --cv value: %w", err)
	}
	cfg.CV = cv

	retrain, err := ParseBoolString(input.Retrain)
	if err != nil {
		return fmt.Errorf("invalid --retrain value: %w", err)
	}
	cfg.RetrainOnAll = retrain

	cfg.Folds = input.Folds
	if cfg.Folds <= 0 {
		cfg.Folds = DefaultFolds
	}
	if cfg.Folds > MaxFolds {
		return fmt.Errorf("folds cannot exceed %d (received %d)", MaxFolds, input.Folds)
	}

	if input.TestTrials != "" {
		idx, err := ParseIntList(input.TestTrials)
		if err != nil {
			return fmt.Errorf("invalid --test-trials: %w", err)
		}
		cfg.TestIdx = idx
	}

	cfg.Step = input.Step
	if cfg.Step < 0 {
		return fmt.Errorf("step cannot be negative (received %d)", input.Step)
	}

	return nil
}

// processGrid parses a hyper-parameter grid spec of the form
// "softmaxscale=1,2,4;priorweight=0,60,120" into ordered axes.
func processGrid(cfg *Config, input *ConfigRawInput) error {
	if input.Grid == "" {
		return nil
	}
	for axis := range strings.SplitSeq(input.Grid, ";") {
		name, valuesStr, found := strings.Cut(strings.TrimSpace(axis), "=")
		if !found || name == "" {
			return fmt.Errorf("invalid --grid axis %q, expected name=v1,v2,...", axis)
		}
		values, err := ParseFloatList(valuesStr)
		if err != nil {
			return fmt.Errorf("invalid --grid values for %s: %w", name, err)
		}
		if len(values) == 0 {
			return fmt.Errorf("--grid axis %s has no values", name)
		}
		cfg.Grid = append(cfg.Grid, GridAxis{Name: strings.TrimSpace(name), Values: values})
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("result-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("result-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates the result store backend configuration.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	cfg.ResultBackend = schema.DatabaseBackend(strings.ToLower(input.ResultBackend))
	if cfg.ResultBackend == "" {
		cfg.ResultBackend = schema.NoneBackend
	}
	if _, ok := schema.ValidDatabaseBackends[cfg.ResultBackend]; !ok {
		return fmt.Errorf("invalid result backend '%s'. must be sqlite, mysql, postgresql, none", input.ResultBackend)
	}
	cfg.ResultDBConnect = input.ResultDBConnect
	return ValidateDatabaseConnectionString(cfg.ResultBackend, cfg.ResultDBConnect)
}

// ConfigParams flattens the config into the key/value form recorded with
// each stored run.
func (c *Config) ConfigParams() map[string]any {
	return map[string]any{
		"dataset": c.Dataset,
		"model":   string(c.Model),
		"tau_ms":  c.TauMs,
		"rank":    c.Rank,
		"folds":   c.Folds,
		"cv":      c.CV,
		"nvirt":   c.NVirtOut,
	}
}

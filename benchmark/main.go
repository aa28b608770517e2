// Package main provides a performance benchmarking tool for the evoked CLI.
// It measures execution times across different simulated dataset sizes and
// command types, running each test multiple times, treating the first parallel
// run as cold and averaging the rest as warm, generating CSV output for
// performance analysis and documentation.
//
// Prerequisites:
// - evoked binary installed and available in PATH
//
// Usage: go run benchmark/main.go [workers]
//
//	workers: Worker count used for the parallel phase
package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (serial average, cold parallel run and average of warm parallel runs).
type BenchmarkResult struct {
	Dataset    string
	Command    string
	SerialTime string
	ColdTime   string
	WarmTime   string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	Timeout      time.Duration
	Workers      int
	SerialRuns   int
	ParallelRuns int
	Datasets     []string
	DatasetArgs  map[string]string
	SweepGrids   map[string]string
}

func main() {
	workers := 8
	if len(os.Args) == 2 {
		parsed, err := strconv.Atoi(os.Args[1])
		if err != nil || parsed < 1 {
			fmt.Printf("Usage: %s [workers]\n", os.Args[0])
			os.Exit(1)
		}
		workers = parsed
	}

	config := BenchmarkConfig{
		Timeout:      5 * time.Minute,
		Workers:      workers,
		SerialRuns:   3,
		ParallelRuns: 4,
		Datasets:     []string{"small", "medium", "large"},
		DatasetArgs: map[string]string{
			"small":  "files=4,trials=10,samples=300,channels=4,outputs=8",
			"medium": "files=8,trials=20,samples=600,channels=8,outputs=16",
			"large":  "files=12,trials=30,samples=1200,channels=16,outputs=36",
		},
		SweepGrids: map[string]string{
			"small":  "softmaxscale=1,2,3",
			"medium": "softmaxscale=1,2,3;priorweight=60,120",
			"large":  "softmaxscale=1,2,3;priorweight=60,120",
		},
	}

	if err := checkPrerequisites(); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the evoked binary is installed
func checkPrerequisites() error {
	if _, err := exec.LookPath("evoked"); err != nil {
		return fmt.Errorf("evoked binary not found in PATH")
	}
	return nil
}

// runBenchmarks executes all benchmark tests across configured dataset sizes
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d dataset sizes, %v timeout, %d workers, serial: %d runs, parallel: %d runs\n",
		len(config.Datasets), config.Timeout, config.Workers, config.SerialRuns, config.ParallelRuns)

	for _, dataset := range config.Datasets {
		fmt.Printf("Benchmarking %s dataset\n", dataset)

		dataArgs := config.DatasetArgs[dataset]

		// Cross-validated analysis
		result := runBenchmarkSuite(config, dataset, "analyse", "cross-validated analysis", "sim --data-args "+dataArgs)
		results = append(results, result)

		// Learning curve
		result = runBenchmarkSuite(config, dataset, "traintest", "learning curve analysis", "sim --step 2 --data-args "+dataArgs)
		results = append(results, result)

		// Hyperparameter sweep
		grid, hasGrid := config.SweepGrids[dataset]
		if hasGrid {
			desc := fmt.Sprintf("hyperparameter sweep (%s)", grid)
			args := fmt.Sprintf("sim --grid \"%s\" --data-args %s", grid, dataArgs)
			result = runBenchmarkSuite(config, dataset, "sweep", desc, args)
			results = append(results, result)
		}
	}

	return results
}

// runBenchmarkSuite runs both serial and parallel benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, dataset, command, description, extraArgs string) BenchmarkResult {
	fmt.Printf("Running %s on %s dataset\n", description, dataset)

	// Helper to run a benchmark phase
	runPhase := func(workers, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, command, extraArgs, workers, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avg := sum / float64(len(times))
			avgTime = fmt.Sprintf("%.3fs", avg)
		}
		return cold, avgTime
	}

	// Phase 1: Serial runs
	_, serialAvg := runPhase(1, config.SerialRuns, "Serial")

	// Phase 2: Parallel runs
	coldTime, warmAvg := runPhase(config.Workers, config.ParallelRuns, "Parallel")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  Serial average: %s, Cold time: %s, Warm average: %s\n", serialAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:    dataset,
		Command:    command,
		SerialTime: serialAvg,
		ColdTime:   coldTimeStr,
		WarmTime:   warmAvg,
	}
}

// runBenchmark executes an evoked command multiple times with the specified worker count and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, command, extraArgs string, workers, numRuns int) (coldTime float64, warmTimes []float64) {
	// Prepare command arguments
	args := []string{command, "--workers", strconv.Itoa(workers), "--color", "no", "--emoji", "no"}
	if extraArgs != "" {
		args = append(args, parseArgs(extraArgs)...)
	}

	var times []float64
	for run := 1; run <= numRuns; run++ {
		start := time.Now()

		cmd := exec.Command("evoked", args...)

		done := make(chan bool)
		var output []byte
		var cmdErr error

		go func() {
			output, cmdErr = cmd.CombinedOutput()
			done <- true
		}()

		select {
		case <-done:
			if cmdErr == nil && isSuccess(output, command) {
				times = append(times, time.Since(start).Seconds())
			}
		case <-time.After(config.Timeout):
			// Timeout - don't add to times
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

func parseArgs(argsStr string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false

	for _, r := range argsStr {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ' ':
			if !inQuotes && current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			} else if inQuotes {
				current.WriteRune(r)
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// isSuccess checks if command output indicates successful completion
func isSuccess(output []byte, command string) bool {
	outputStr := string(output)

	var completionPhrase string
	switch command {
	case "traintest":
		completionPhrase = "Learning curve ("
	case "sweep":
		completionPhrase = "Sweep over "
	default:
		completionPhrase = "Dataset "
	}

	return strings.Contains(outputStr, completionPhrase)
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/evoked_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	if err := writer.Write([]string{"dataset", "cmd", "serial_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	// Write results
	for _, result := range results {
		if err := writer.Write([]string{result.Dataset, result.Command, result.SerialTime, result.ColdTime, result.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	printCommandSummary(results, "analyse", "Cross-Validated Analysis:")
	printCommandSummary(results, "traintest", "Learning Curve:")
	printCommandSummary(results, "sweep", "Hyperparameter Sweep:")

	fmt.Printf("Benchmark script completed successfully\n")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command, title string) {
	fmt.Printf("%s\n", title)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-8s: Serial: %s, Cold: %s, Warm: %s\n", result.Dataset, result.SerialTime, result.ColdTime, result.WarmTime)
		}
	}
}

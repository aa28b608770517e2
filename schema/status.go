package schema

import "time"

// StoreStatus represents the status of the result store.
type StoreStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalRuns     int              `json:"total_runs"`
	LastRunID     int64            `json:"last_run_id"`
	LastRunTime   time.Time        `json:"last_run_time"`
	OldestRunTime time.Time        `json:"oldest_run_time"`
	TotalFiles    int              `json:"total_files"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}

// FileResultRecord represents a row from the evoked_file_results table.
type FileResultRecord struct {
	RunID        int64
	Dataset      string
	Filename     string
	AnalysisTime time.Time
	Model        string
	Score        float64
	Lengths      []int
	ProbErr      []float64
}

// RunRecord represents a row from the evoked_runs table.
type RunRecord struct {
	RunID        int64
	StartTime    time.Time
	EndTime      *time.Time
	TotalFiles   int
	ConfigParams string
}

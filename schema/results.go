package schema

// ModelSummary is a read-only snapshot of a fitted model, recorded with the
// analysis result so runs can be compared without holding the model itself.
type ModelSummary struct {
	Name     ModelName
	Tau      int // Response window length in samples
	Offset   int // Response start offset in samples
	Rank     int // Winning/configured rank for factored models
	EvtLabs  []string
	Params   map[string]float64 // Adapter configuration at fit time
	Decoding DecodingParams
}

// Diagnostics collects secondary artifacts of one analysis, kept separate so
// callers that only need the score and curve can drop them.
type Diagnostics struct {
	// AllScores is the full raw score tensor including the candidate-model
	// axis, before marginalization.
	AllScores *RawScores

	// FoldScores are the held-out score per cross-validation fold.
	FoldScores []float64

	// TrainIdx and TestIdx are the flat trial indices of the split used.
	TrainIdx []int
	TestIdx  []int
}

// AnalysisResult is everything AnalyseDataset returns for one file.
type AnalysisResult struct {
	Score       float64        // AUDC summary score in [0,1]
	Curve       *DecodingCurve // Decoding curve over integration lengths
	Scores      *RawScores     // Primary (possibly CV-aggregated) raw scores
	Model       ModelSummary   // Snapshot of the final fitted model
	Diagnostics Diagnostics
}

// DatasetResult aggregates per-file analyses of a named dataset.
type DatasetResult struct {
	Dataset   string
	Filenames []string
	Scores    []float64
	Curves    []*DecodingCurve
	NOutputs  []int

	AveScore float64
	AveCurve *DecodingCurve
}

// SweepConfigResult accumulates, for one grid configuration, the per-file
// outcomes of a hyper-parameter sweep. Lists grow in completion order.
type SweepConfigResult struct {
	Config    map[string]float64
	Filenames []string
	Scores    []float64
	Curves    []*DecodingCurve
}

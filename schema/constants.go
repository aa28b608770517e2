package schema

// Custom string types for type safety.
type (
	// ModelName selects which concrete model adapter to construct.
	ModelName string

	// OutputMode represents the format of report output.
	OutputMode string

	// DatabaseBackend represents the database backend for run tracking.
	DatabaseBackend string
)

// All model adapters supported.
const (
	ModelCCA           ModelName = "cca" // default
	ModelBwd           ModelName = "bwd"
	ModelFwd           ModelName = "fwd"
	ModelRidge         ModelName = "ridge"
	ModelLR            ModelName = "lr"
	ModelSVR           ModelName = "svr"
	ModelSVC           ModelName = "svc"
	ModelLinearSklearn ModelName = "linearsklearn"
)

// All output modes supported.
const (
	TextOut    OutputMode = "text" // default
	CSVOut     OutputMode = "csv"
	ParquetOut OutputMode = "parquet"
)

// All tracking backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// ValidModelNames lists all valid model tokens.
var ValidModelNames = map[ModelName]struct{}{
	ModelCCA:           {},
	ModelBwd:           {},
	ModelFwd:           {},
	ModelRidge:         {},
	ModelLR:            {},
	ModelSVR:           {},
	ModelSVC:           {},
	ModelLinearSklearn: {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut:    {},
	CSVOut:     {},
	ParquetOut: {},
}

// ValidDatabaseBackends lists all valid tracking backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

package schema

// Custom string types for type safety.
type (
	// OutputMode represents where a run delivers its flagged rows.
	OutputMode string

	// DatabaseBackend represents the database backend for the hive and source stores.
	DatabaseBackend string

	// LogFormat represents the structured log encoding.
	LogFormat string
)

// All output modes supported.
const (
	TableOut OutputMode = "table" // default
	CSVOut   OutputMode = "csv"
	BothOut  OutputMode = "both"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All log formats supported.
const (
	TextLog LogFormat = "text" // default
	JSONLog LogFormat = "json"
)

// DefaultHiveSchema is the PostgreSQL schema holding the hive tables.
const DefaultHiveSchema = "hive"

// DuplicateRuleName is the reserved name of the whole-batch duplicate rule.
const DuplicateRuleName = "Duplicate"

// Date layouts used across the pipeline.
const (
	// InputDateLayout parses user supplied dates such as 2019/3/14.
	InputDateLayout = "2006/1/2"

	// FlagDateLayout renders the date column of flagged rows.
	FlagDateLayout = "2006/1/2"

	// StoreDateLayout is how dates are persisted in text columns.
	StoreDateLayout = "2006-01-02"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TableOut: {},
	CSVOut:   {},
	BothOut:  {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidLogFormats lists all valid log formats.
var ValidLogFormats = map[LogFormat]struct{}{
	TextLog: {},
	JSONLog: {},
}

// WritesTable reports whether the mode includes the hive table sink.
func (m OutputMode) WritesTable() bool {
	return m == TableOut || m == BothOut
}

// WritesCSV reports whether the mode includes the flat-file sink.
func (m OutputMode) WritesCSV() bool {
	return m == CSVOut || m == BothOut
}

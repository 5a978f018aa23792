package hive

import (
	"fmt"

	"github.com/ctran-hive/pipeline/schema"
)

// Table names for the hive.
const (
	flagsTable          = "flags"
	servicePeriodsTable = "service_periods"
	flaggedDataTable    = "flagged_data"
)

// hiveTables lists the hive tables in creation order.
var hiveTables = []string{flagsTable, servicePeriodsTable, flaggedDataTable}

// getCreateFlagsQuery returns the CREATE TABLE query for flags.
// flag_id is set from the FlagID enumeration rather than auto-incremented.
func getCreateFlagsQuery(schemaName string, backend schema.DatabaseBackend) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			flag_id INTEGER PRIMARY KEY,
			description VARCHAR(200),
			name VARCHAR(30)
		);
	`, qualifiedTable(schemaName, flagsTable, backend))
}

// getCreateServicePeriodsQuery returns the CREATE TABLE query for service_periods.
func getCreateServicePeriodsQuery(schemaName string, backend schema.DatabaseBackend) string {
	table := qualifiedTable(schemaName, servicePeriodsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				service_key BIGINT AUTO_INCREMENT PRIMARY KEY,
				month SMALLINT NOT NULL CHECK ( (month <= 12) AND (month >= 1) ),
				year SMALLINT NOT NULL CHECK (year > 1700),
				ternary SMALLINT NOT NULL CHECK ( (ternary <= 3) AND (ternary >= 1) ),
				UNIQUE KEY service_period_bucket (month, year, ternary)
			);
		`, table)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				service_key BIGSERIAL PRIMARY KEY,
				month SMALLINT NOT NULL CHECK ( (month <= 12) AND (month >= 1) ),
				year SMALLINT NOT NULL CHECK (year > 1700),
				ternary SMALLINT NOT NULL CHECK ( (ternary <= 3) AND (ternary >= 1) ),
				UNIQUE (month, year, ternary)
			);
		`, table)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				service_key INTEGER PRIMARY KEY AUTOINCREMENT,
				month INTEGER NOT NULL CHECK ( (month <= 12) AND (month >= 1) ),
				year INTEGER NOT NULL CHECK (year > 1700),
				ternary INTEGER NOT NULL CHECK ( (ternary <= 3) AND (ternary >= 1) ),
				UNIQUE (month, year, ternary)
			);
		`, table)
	}
}

// getCreateFlaggedDataQuery returns the CREATE TABLE query for flagged_data.
func getCreateFlaggedDataQuery(schemaName string, backend schema.DatabaseBackend) string {
	table := qualifiedTable(schemaName, flaggedDataTable, backend)
	periods := qualifiedTable(schemaName, servicePeriodsTable, backend)
	flags := qualifiedTable(schemaName, flagsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				row_id BIGINT NOT NULL,
				service_key BIGINT NOT NULL,
				flag_id INTEGER NOT NULL,
				service_date DATE NOT NULL,
				INDEX flagged_data_service_date_idx (service_date),
				FOREIGN KEY (service_key) REFERENCES %s (service_key),
				FOREIGN KEY (flag_id) REFERENCES %s (flag_id)
			);
		`, table, periods, flags)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				row_id BIGINT NOT NULL,
				service_key BIGINT NOT NULL REFERENCES %s (service_key),
				flag_id INTEGER NOT NULL REFERENCES %s (flag_id),
				service_date DATE NOT NULL
			);
		`, table, periods, flags)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				row_id INTEGER NOT NULL,
				service_key INTEGER NOT NULL REFERENCES %s (service_key),
				flag_id INTEGER NOT NULL REFERENCES %s (flag_id),
				service_date TEXT NOT NULL
			);
		`, table, quoteIdent(servicePeriodsTable, backend), quoteIdent(flagsTable, backend))
	}
}

// getCreateFlaggedDataIndexQuery returns the service_date index statement.
// MySQL declares the index inline, so it gets no separate statement.
func getCreateFlaggedDataIndexQuery(schemaName string, backend schema.DatabaseBackend) string {
	if backend == schema.MySQLBackend {
		return ""
	}
	return fmt.Sprintf(`CREATE INDEX IF NOT EXISTS flagged_data_service_date_idx ON %s (service_date)`,
		qualifiedTable(schemaName, flaggedDataTable, backend))
}

// getUpsertFlagQuery returns the flag UPSERT query for the backend.
func getUpsertFlagQuery(schemaName string, backend schema.DatabaseBackend) string {
	table := qualifiedTable(schemaName, flagsTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (flag_id, description, name) VALUES (?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE description = new.description, name = new.name`, table)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (flag_id, description, name) VALUES ($1, $2, $3)
			ON CONFLICT (flag_id) DO UPDATE SET description = EXCLUDED.description, name = EXCLUDED.name`, table)
	default: // SQLite
		return fmt.Sprintf(`INSERT INTO %s (flag_id, description, name) VALUES (?, ?, ?)
			ON CONFLICT (flag_id) DO UPDATE SET description = excluded.description, name = excluded.name`, table)
	}
}

// getInsertPeriodIgnoreQuery returns an INSERT that is a no-op when the bucket already exists.
func getInsertPeriodIgnoreQuery(schemaName string, backend schema.DatabaseBackend) string {
	table := qualifiedTable(schemaName, servicePeriodsTable, backend)
	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`INSERT IGNORE INTO %s (month, year, ternary) VALUES (?, ?, ?)`, table)
	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`INSERT INTO %s (month, year, ternary) VALUES ($1, $2, $3)
			ON CONFLICT (month, year, ternary) DO NOTHING`, table)
	default: // SQLite
		return fmt.Sprintf(`INSERT OR IGNORE INTO %s (month, year, ternary) VALUES (?, ?, ?)`, table)
	}
}

// getCreateFlagViewQuery returns a view exposing the rows carrying one flag.
func getCreateFlagViewQuery(schemaName string, backend schema.DatabaseBackend, id schema.FlagID) string {
	view := qualifiedTable(schemaName, id.ViewName(), backend)
	table := qualifiedTable(schemaName, flaggedDataTable, backend)
	verb := "CREATE OR REPLACE VIEW"
	if backend == schema.SQLiteBackend {
		verb = "CREATE VIEW IF NOT EXISTS"
	}
	return fmt.Sprintf(`%s %s AS SELECT row_id, service_key, service_date FROM %s WHERE flag_id = %d`,
		verb, view, table, int(id))
}

package hive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/schema"
)

// StoreImpl implements the HiveStore interface on top of database/sql.
type StoreImpl struct {
	db         *sql.DB
	backend    schema.DatabaseBackend
	schemaName string

	// memory backs service-period resolution for the none backend.
	memory struct {
		sync.Mutex
		keys map[schema.ServicePeriod]int64
		next int64
	}
}

var _ contract.HiveStore = &StoreImpl{} // Compile-time check

// NewHiveStore opens the hive for the backend and makes sure its tables exist.
// The none backend returns a store that persists nothing and resolves
// service periods in memory.
func NewHiveStore(ctx context.Context, backend schema.DatabaseBackend, connStr, schemaName string) (*StoreImpl, error) {
	if schemaName == "" {
		schemaName = schema.DefaultHiveSchema
	}
	if err := validateTables(append([]string{schemaName}, hiveTables...)...); err != nil {
		return nil, err
	}

	store := &StoreImpl{backend: backend, schemaName: schemaName}
	store.memory.keys = make(map[schema.ServicePeriod]int64)
	if backend == schema.NoneBackend {
		return store, nil
	}

	db, err := openDB(ctx, backend, connStr, contract.GetHiveDBFilePath())
	if err != nil {
		return nil, err
	}
	store.db = db

	if err := store.CreateSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.CreateTables(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create hive tables: %w", err)
	}
	return store, nil
}

// disabled reports whether the store persists nothing.
func (hs *StoreImpl) disabled() bool {
	return hs.backend == schema.NoneBackend || hs.db == nil
}

func (hs *StoreImpl) table(name string) string {
	return qualifiedTable(hs.schemaName, name, hs.backend)
}

// CreateSchema creates the hive schema. Only PostgreSQL has schemas; other backends no-op.
func (hs *StoreImpl) CreateSchema(ctx context.Context) error {
	if hs.disabled() || hs.backend != schema.PostgreSQLBackend {
		return nil
	}
	query := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", quoteIdent(hs.schemaName, hs.backend))
	if _, err := hs.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", hs.schemaName, err)
	}
	return nil
}

// DropSchema drops the hive schema with everything in it. Backends without
// schemas drop the hive tables instead.
func (hs *StoreImpl) DropSchema(ctx context.Context) error {
	if hs.disabled() {
		return nil
	}
	if hs.backend != schema.PostgreSQLBackend {
		return hs.DropTables(ctx)
	}
	query := fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", quoteIdent(hs.schemaName, hs.backend))
	if _, err := hs.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to drop schema %s: %w", hs.schemaName, err)
	}
	return nil
}

// CreateTables creates flags, service_periods and flagged_data, then writes
// the flag enumeration into flags.
func (hs *StoreImpl) CreateTables(ctx context.Context) error {
	if hs.disabled() {
		return nil
	}
	queries := []struct {
		name  string
		query string
	}{
		{flagsTable, getCreateFlagsQuery(hs.schemaName, hs.backend)},
		{servicePeriodsTable, getCreateServicePeriodsQuery(hs.schemaName, hs.backend)},
		{flaggedDataTable, getCreateFlaggedDataQuery(hs.schemaName, hs.backend)},
		{flaggedDataTable + " index", getCreateFlaggedDataIndexQuery(hs.schemaName, hs.backend)},
	}
	for _, q := range queries {
		if q.query == "" {
			continue
		}
		if _, err := hs.db.ExecContext(ctx, q.query); err != nil {
			return fmt.Errorf("failed to create table %s: %w", q.name, err)
		}
	}
	return hs.WriteFlags(ctx, schema.AllFlags())
}

// DropTables drops the flag views and the hive tables, dependents first.
func (hs *StoreImpl) DropTables(ctx context.Context) error {
	if hs.disabled() {
		return nil
	}
	for _, f := range schema.AllFlags() {
		query := fmt.Sprintf("DROP VIEW IF EXISTS %s", hs.table(f.FlagID.ViewName()))
		if _, err := hs.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to drop view %s: %w", f.FlagID.ViewName(), err)
		}
	}
	for i := len(hiveTables) - 1; i >= 0; i-- {
		query := fmt.Sprintf("DROP TABLE IF EXISTS %s", hs.table(hiveTables[i]))
		if _, err := hs.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", hiveTables[i], err)
		}
	}
	return nil
}

// CreateFlagViews creates one view per flag over flagged_data.
func (hs *StoreImpl) CreateFlagViews(ctx context.Context) error {
	if hs.disabled() {
		return nil
	}
	for _, f := range schema.AllFlags() {
		if _, err := hs.db.ExecContext(ctx, getCreateFlagViewQuery(hs.schemaName, hs.backend, f.FlagID)); err != nil {
			return fmt.Errorf("failed to create view %s: %w", f.FlagID.ViewName(), err)
		}
	}
	return nil
}

// WriteFlags upserts flags on flag_id.
func (hs *StoreImpl) WriteFlags(ctx context.Context, flags []schema.Flag) error {
	if hs.disabled() {
		return nil
	}
	query := getUpsertFlagQuery(hs.schemaName, hs.backend)
	for _, f := range flags {
		if _, err := hs.db.ExecContext(ctx, query, int(f.FlagID), f.Description, f.Name); err != nil {
			return fmt.Errorf("failed to write flag %d: %w", f.FlagID, err)
		}
	}
	return nil
}

// GetFlags returns the flags table ordered by id. The none backend answers
// from the enumeration.
func (hs *StoreImpl) GetFlags(ctx context.Context) ([]schema.Flag, error) {
	if hs.disabled() {
		return schema.AllFlags(), nil
	}
	query := fmt.Sprintf("SELECT flag_id, description, name FROM %s ORDER BY flag_id", hs.table(flagsTable))
	rows, err := hs.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query flags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var flags []schema.Flag
	for rows.Next() {
		var f schema.Flag
		var id int
		var desc, name sql.NullString
		if err := rows.Scan(&id, &desc, &name); err != nil {
			return nil, fmt.Errorf("failed to scan flag: %w", err)
		}
		f.FlagID, f.Description, f.Name = schema.FlagID(id), desc.String, name.String
		flags = append(flags, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flags: %w", err)
	}
	return flags, nil
}

// GetOrCreateServiceKey returns the key of the period, inserting it when absent.
// The insert is a no-op on conflict, so concurrent creators converge on the
// single row guarded by UNIQUE (month, year, ternary).
func (hs *StoreImpl) GetOrCreateServiceKey(ctx context.Context, period schema.ServicePeriod) (int64, error) {
	if err := period.Validate(); err != nil {
		return 0, err
	}
	bucket := schema.ServicePeriod{Month: period.Month, Year: period.Year, Ternary: period.Ternary}

	if hs.disabled() {
		hs.memory.Lock()
		defer hs.memory.Unlock()
		if key, ok := hs.memory.keys[bucket]; ok {
			return key, nil
		}
		hs.memory.next++
		hs.memory.keys[bucket] = hs.memory.next
		return hs.memory.next, nil
	}

	key, err := hs.lookupServiceKey(ctx, bucket)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	if _, err := hs.db.ExecContext(ctx, getInsertPeriodIgnoreQuery(hs.schemaName, hs.backend), bucket.Month, bucket.Year, bucket.Ternary); err != nil {
		return 0, fmt.Errorf("failed to insert service period %d/%d/%d: %w", bucket.Year, bucket.Month, bucket.Ternary, err)
	}
	key, err = hs.lookupServiceKey(ctx, bucket)
	if err != nil {
		return 0, fmt.Errorf("failed to read back service period %d/%d/%d: %w", bucket.Year, bucket.Month, bucket.Ternary, err)
	}
	return key, nil
}

func (hs *StoreImpl) lookupServiceKey(ctx context.Context, p schema.ServicePeriod) (int64, error) {
	query := rebind(hs.backend, fmt.Sprintf("SELECT service_key FROM %s WHERE month = ? AND year = ? AND ternary = ?", hs.table(servicePeriodsTable)))
	var key int64
	if err := hs.db.QueryRowContext(ctx, query, p.Month, p.Year, p.Ternary).Scan(&key); err != nil {
		return 0, err
	}
	return key, nil
}

// WriteRows inserts flagged rows in a single transaction.
func (hs *StoreImpl) WriteRows(ctx context.Context, rows []schema.FlaggedRow) error {
	if hs.disabled() || len(rows) == 0 {
		return nil
	}

	tx, err := hs.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := rebind(hs.backend, fmt.Sprintf("INSERT INTO %s (row_id, service_key, flag_id, service_date) VALUES (?, ?, ?, ?)", hs.table(flaggedDataTable)))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare flagged row insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range rows {
		date, err := time.Parse(schema.FlagDateLayout, r.Date)
		if err != nil {
			return fmt.Errorf("row %d has invalid date %q: %w", r.RowID, r.Date, err)
		}
		if _, err := stmt.ExecContext(ctx, r.RowID, r.ServiceKey, int(r.FlagID), formatDate(date, hs.backend)); err != nil {
			return fmt.Errorf("failed to insert flagged row %d: %w", r.RowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flagged rows: %w", err)
	}
	return nil
}

// LatestProcessedDay returns MAX(service_date) over flagged_data.
func (hs *StoreImpl) LatestProcessedDay(ctx context.Context) (time.Time, bool, error) {
	if hs.disabled() {
		return time.Time{}, false, nil
	}
	query := fmt.Sprintf("SELECT MAX(service_date) FROM %s", hs.table(flaggedDataTable))
	var latest any
	if err := hs.db.QueryRowContext(ctx, query).Scan(&latest); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query latest processed day: %w", err)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	day, err := parseDateValue(latest)
	if err != nil {
		return time.Time{}, false, err
	}
	return day, true, nil
}

// DeleteDateRange removes flagged rows with service_date in [start, end].
// A zero start or end leaves that side of the range open.
func (hs *StoreImpl) DeleteDateRange(ctx context.Context, start, end time.Time) (int64, error) {
	if hs.disabled() {
		return 0, nil
	}
	query := fmt.Sprintf("DELETE FROM %s", hs.table(flaggedDataTable))
	var args []any
	switch {
	case !start.IsZero() && !end.IsZero():
		query += " WHERE service_date >= ? AND service_date <= ?"
		args = append(args, formatDate(start, hs.backend), formatDate(end, hs.backend))
	case !start.IsZero():
		query += " WHERE service_date >= ?"
		args = append(args, formatDate(start, hs.backend))
	case !end.IsZero():
		query += " WHERE service_date <= ?"
		args = append(args, formatDate(end, hs.backend))
	}

	res, err := hs.db.ExecContext(ctx, rebind(hs.backend, query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete flagged rows: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return n, nil
}

// GetAllFlaggedRows retrieves every flagged row ordered by date, row and flag.
func (hs *StoreImpl) GetAllFlaggedRows(ctx context.Context) ([]schema.FlaggedRecord, error) {
	if hs.disabled() {
		return nil, nil
	}
	query := fmt.Sprintf("SELECT row_id, service_key, flag_id, service_date FROM %s ORDER BY service_date, row_id, flag_id", hs.table(flaggedDataTable))
	rows, err := hs.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query flagged rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.FlaggedRecord
	for rows.Next() {
		var rec schema.FlaggedRecord
		var flagID int
		var date any
		if err := rows.Scan(&rec.RowID, &rec.ServiceKey, &flagID, &date); err != nil {
			return nil, fmt.Errorf("failed to scan flagged row: %w", err)
		}
		rec.FlagID = schema.FlagID(flagID)
		if rec.ServiceDate, err = parseDateValue(date); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating flagged rows: %w", err)
	}
	return results, nil
}

// GetStatus returns status information about the hive.
func (hs *StoreImpl) GetStatus(ctx context.Context) (schema.HiveStatus, error) {
	status := schema.HiveStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.backend == schema.PostgreSQLBackend {
		status.SchemaName = hs.schemaName
	}
	if hs.disabled() {
		return status, nil
	}

	for _, table := range hiveTables {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", hs.table(table))
		if err := hs.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalFlagged = status.TableSizes[flaggedDataTable]

	latest, ok, err := hs.LatestProcessedDay(ctx)
	if err != nil {
		return status, err
	}
	status.HasCheckpoint, status.LatestServiceDay = ok, latest
	return status, nil
}

// Close closes the underlying connection.
func (hs *StoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

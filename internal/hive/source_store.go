package hive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/schema"
)

// sourceTable is the transit stop event table read by the pipeline.
const sourceTable = "ctran_data"

// sourceColumns lists the ctran_data columns in scan order.
var sourceColumns = []string{
	"row_id", "service_date", "vehicle_number", "train", "route_number",
	"direction", "location_id", "stop_time", "arrive_time", "leave_time",
	"dwell", "door", "lift", "ons", "offs", "estimated_load",
	"maximum_speed", "gps_longitude", "gps_latitude", "data_source",
	"schedule_status",
}

// SourceStoreImpl implements the SourceStore interface.
type SourceStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.SourceStore = &SourceStoreImpl{} // Compile-time check

// NewSourceStore opens the source database. The none backend yields a store
// that extracts nothing.
func NewSourceStore(ctx context.Context, backend schema.DatabaseBackend, connStr string) (*SourceStoreImpl, error) {
	if backend == schema.NoneBackend {
		return &SourceStoreImpl{backend: backend}, nil
	}
	db, err := openDB(ctx, backend, connStr, contract.GetSourceDBFilePath())
	if err != nil {
		return nil, err
	}
	return &SourceStoreImpl{db: db, backend: backend}, nil
}

// getCreateSourceQuery returns the CREATE TABLE query for ctran_data.
func getCreateSourceQuery(backend schema.DatabaseBackend) string {
	table := quoteIdent(sourceTable, backend)
	dateType, intType, floatType := "DATE", "BIGINT", "DOUBLE PRECISION"
	switch backend {
	case schema.SQLiteBackend:
		dateType, intType, floatType = "TEXT", "INTEGER", "REAL"
	case schema.MySQLBackend:
		floatType = "DOUBLE"
	}
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			row_id %[3]s PRIMARY KEY,
			service_date %[2]s NOT NULL,
			vehicle_number %[3]s,
			train %[3]s,
			route_number %[3]s,
			direction %[3]s,
			location_id %[3]s,
			stop_time %[3]s,
			arrive_time %[3]s,
			leave_time %[3]s,
			dwell %[3]s,
			door %[3]s,
			lift %[3]s,
			ons %[3]s,
			offs %[3]s,
			estimated_load %[3]s,
			maximum_speed %[4]s,
			gps_longitude %[4]s,
			gps_latitude %[4]s,
			data_source %[3]s,
			schedule_status %[3]s
		);
	`, table, dateType, intType, floatType)
}

// CreateTable creates ctran_data when it does not exist.
func (ss *SourceStoreImpl) CreateTable(ctx context.Context) error {
	if ss.db == nil {
		return nil
	}
	if _, err := ss.db.ExecContext(ctx, getCreateSourceQuery(ss.backend)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", sourceTable, err)
	}
	return nil
}

// DropTable drops ctran_data.
func (ss *SourceStoreImpl) DropTable(ctx context.Context) error {
	if ss.db == nil {
		return nil
	}
	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(sourceTable, ss.backend))
	if _, err := ss.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", sourceTable, err)
	}
	return nil
}

// QueryDateRange returns the records with service_date in [start, end] ordered by row_id.
func (ss *SourceStoreImpl) QueryDateRange(ctx context.Context, start, end time.Time) ([]schema.Record, error) {
	if ss.db == nil {
		return nil, nil
	}
	query := rebind(ss.backend, fmt.Sprintf(
		"SELECT %s FROM %s WHERE service_date >= ? AND service_date <= ? ORDER BY row_id",
		strings.Join(sourceColumns, ", "), quoteIdent(sourceTable, ss.backend)))

	rows, err := ss.db.QueryContext(ctx, query, formatDate(start, ss.backend), formatDate(end, ss.backend))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", sourceTable, err)
	}
	defer func() { _ = rows.Close() }()

	var records []schema.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", sourceTable, err)
	}
	return records, nil
}

func scanRecord(rows *sql.Rows) (schema.Record, error) {
	var rec schema.Record
	var date any
	var vehicle, train, route, direction, location sql.NullInt64
	var stopTime, arrive, leave, dwell, door, lift sql.NullInt64
	var ons, offs, load, dataSource, scheduleStatus sql.NullInt64
	var maxSpeed, longitude, latitude sql.NullFloat64
	err := rows.Scan(&rec.RowID, &date, &vehicle, &train, &route, &direction, &location,
		&stopTime, &arrive, &leave, &dwell, &door, &lift, &ons, &offs, &load,
		&maxSpeed, &longitude, &latitude, &dataSource, &scheduleStatus)
	if err != nil {
		return rec, fmt.Errorf("failed to scan %s row: %w", sourceTable, err)
	}
	if rec.ServiceDate, err = parseDateValue(date); err != nil {
		return rec, fmt.Errorf("row %d: %w", rec.RowID, err)
	}

	rec.VehicleNumber, rec.TrainNumber, rec.RouteNumber = nullInt(vehicle), nullInt(train), nullInt(route)
	rec.Direction, rec.LocationID, rec.StopTime = nullInt(direction), nullInt(location), nullInt(stopTime)
	rec.ArriveTime, rec.LeaveTime, rec.Dwell = nullInt(arrive), nullInt(leave), nullInt(dwell)
	rec.Door, rec.Lift, rec.Ons, rec.Offs = nullInt(door), nullInt(lift), nullInt(ons), nullInt(offs)
	rec.EstimatedLoad = nullInt(load)
	rec.MaximumSpeed, rec.GPSLongitude, rec.GPSLatitude = nullFloat(maxSpeed), nullFloat(longitude), nullFloat(latitude)
	rec.DataSource, rec.ScheduleStatus = nullInt(dataSource), nullInt(scheduleStatus)
	return rec, nil
}

// InsertRecords inserts records into ctran_data in one transaction.
func (ss *SourceStoreImpl) InsertRecords(ctx context.Context, records []schema.Record) error {
	if ss.db == nil || len(records) == 0 {
		return nil
	}

	tx, err := ss.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(sourceColumns)), ", ")
	query := rebind(ss.backend, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(sourceTable, ss.backend), strings.Join(sourceColumns, ", "), placeholders))
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", sourceTable, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			r.RowID, formatDate(r.ServiceDate, ss.backend),
			intArg(r.VehicleNumber), intArg(r.TrainNumber), intArg(r.RouteNumber),
			intArg(r.Direction), intArg(r.LocationID), intArg(r.StopTime),
			intArg(r.ArriveTime), intArg(r.LeaveTime), intArg(r.Dwell),
			intArg(r.Door), intArg(r.Lift), intArg(r.Ons), intArg(r.Offs),
			intArg(r.EstimatedLoad), floatArg(r.MaximumSpeed),
			floatArg(r.GPSLongitude), floatArg(r.GPSLatitude),
			intArg(r.DataSource), intArg(r.ScheduleStatus))
		if err != nil {
			return fmt.Errorf("failed to insert row %d: %w", r.RowID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s rows: %w", sourceTable, err)
	}
	return nil
}

// Close closes the underlying connection.
func (ss *SourceStoreImpl) Close() error {
	if ss.db != nil {
		return ss.db.Close()
	}
	return nil
}

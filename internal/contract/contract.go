// Package contract provides interfaces and shared utilities for the pipeline's internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/ctran-hive/pipeline/schema"
)

// SourceStore reads transit stop events. The dev-tool methods create and fill
// a mock ctran_data table.
type SourceStore interface {
	// QueryDateRange returns all records whose service date lies in [start, end].
	QueryDateRange(ctx context.Context, start, end time.Time) ([]schema.Record, error)

	CreateTable(ctx context.Context) error
	DropTable(ctx context.Context) error
	InsertRecords(ctx context.Context, records []schema.Record) error
	Close() error
}

// ServicePeriodStore resolves service periods to surrogate keys.
type ServicePeriodStore interface {
	// GetOrCreateServiceKey returns the key of the period, inserting it when absent.
	// Concurrent callers for the same period must observe the same key.
	GetOrCreateServiceKey(ctx context.Context, period schema.ServicePeriod) (int64, error)
}

// FlaggedStore persists flagged rows and answers checkpoint queries.
type FlaggedStore interface {
	WriteRows(ctx context.Context, rows []schema.FlaggedRow) error

	// LatestProcessedDay returns MAX(service_date); ok is false when nothing is persisted.
	LatestProcessedDay(ctx context.Context) (day time.Time, ok bool, err error)

	// DeleteDateRange removes rows with service_date in [start, end]. Zero bounds are open.
	DeleteDateRange(ctx context.Context, start, end time.Time) (int64, error)
}

// FlagStore reads and writes the flags reference table.
type FlagStore interface {
	WriteFlags(ctx context.Context, flags []schema.Flag) error
	GetFlags(ctx context.Context) ([]schema.Flag, error)
}

// HiveStore is the full output store: flags, service_periods and flagged_data.
type HiveStore interface {
	ServicePeriodStore
	FlaggedStore
	FlagStore

	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error
	CreateTables(ctx context.Context) error
	DropTables(ctx context.Context) error
	CreateFlagViews(ctx context.Context) error
	GetStatus(ctx context.Context) (schema.HiveStatus, error)
	GetAllFlaggedRows(ctx context.Context) ([]schema.FlaggedRecord, error)
	Close() error
}

// StoreManager hands out the process-wide stores.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetHiveStore() HiveStore
	GetSourceStore() SourceStore
}

// Sink receives the outcome of a run.
type Sink interface {
	Name() string

	// Write delivers the flagged rows and the distinct service dates touched by the run.
	Write(ctx context.Context, rows []schema.FlaggedRow, dates []time.Time) error
}

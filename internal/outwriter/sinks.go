package outwriter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/schema"
)

// Flat file names written by FlatFileSink.
const (
	FlagsFile          = "flags.csv"
	FlaggedDataFile    = "flagged_data.csv"
	ServicePeriodsFile = "service_periods.csv"
)

var (
	_ contract.Sink = &TableSink{}
	_ contract.Sink = &FlatFileSink{}
)

// TableSink appends flagged rows to the hive flagged_data table.
type TableSink struct {
	store contract.FlaggedStore
}

// NewTableSink creates a sink over the hive store.
func NewTableSink(store contract.FlaggedStore) *TableSink {
	return &TableSink{store: store}
}

// Name implements contract.Sink.
func (s *TableSink) Name() string { return "table" }

// Write implements contract.Sink.
func (s *TableSink) Write(ctx context.Context, rows []schema.FlaggedRow, _ []time.Time) error {
	if len(rows) == 0 {
		return nil
	}
	return s.store.WriteRows(ctx, rows)
}

// FlatFileSink writes the flags reference, the flagged rows and the service
// dates of a run as CSV files into one directory.
type FlatFileSink struct {
	dir   string
	flags []schema.Flag
}

// NewFlatFileSink creates a sink writing into dir. A nil flags slice dumps the full enumeration.
func NewFlatFileSink(dir string, flags []schema.Flag) *FlatFileSink {
	if flags == nil {
		flags = schema.AllFlags()
	}
	return &FlatFileSink{dir: dir, flags: flags}
}

// Name implements contract.Sink.
func (s *FlatFileSink) Name() string { return "csv" }

// Write implements contract.Sink.
func (s *FlatFileSink) Write(_ context.Context, rows []schema.FlaggedRow, dates []time.Time) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	periods := make([]schema.ServiceDateRow, 0, len(dates))
	for _, d := range dates {
		periods = append(periods, schema.NewServiceDateRow(d))
	}

	files := []struct {
		name  string
		write func(w io.Writer) error
	}{
		{FlagsFile, func(w io.Writer) error { return writeCSV(w, s.flags) }},
		{FlaggedDataFile, func(w io.Writer) error { return writeCSV(w, rows) }},
		{ServicePeriodsFile, func(w io.Writer) error { return writeCSV(w, periods) }},
	}
	for _, file := range files {
		if err := writeWithFile(filepath.Join(s.dir, file.name), file.write); err != nil {
			return err
		}
	}
	return nil
}

// BuildSinks returns the sinks selected by the output mode, plus Kafka when brokers are configured.
func BuildSinks(cfg *contract.Config, store contract.FlaggedStore, logger *slog.Logger) []contract.Sink {
	var sinks []contract.Sink
	if cfg.Output.WritesTable() && store != nil {
		sinks = append(sinks, NewTableSink(store))
	}
	if cfg.Output.WritesCSV() {
		sinks = append(sinks, NewFlatFileSink(cfg.OutputPath, nil))
	}
	if len(cfg.KafkaBrokers) > 0 {
		logger.Info("publishing flagged rows", slog.String("topic", cfg.KafkaTopic), slog.Any("brokers", cfg.KafkaBrokers))
		sinks = append(sinks, NewKafkaSink(cfg.KafkaBrokers, cfg.KafkaTopic))
	}
	return sinks
}

// CloseSinks closes every sink holding a connection.
func CloseSinks(sinks []contract.Sink) error {
	var errs []error
	for _, s := range sinks {
		if c, ok := s.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

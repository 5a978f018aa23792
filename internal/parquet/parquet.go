// Package parquet provides data structures and functions for exporting the
// flag hive to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/ctran-hive/pipeline/schema"
	"github.com/parquet-go/parquet-go"
)

// FlaggedData is one flagged stop event.
// This struct maps to the flagged_data table joined with the flag name.
type FlaggedData struct {
	// RowID is the source ctran_data row identifier
	RowID int64 `parquet:"row_id,snappy"`

	// ServiceKey references the service period bucket
	ServiceKey int64 `parquet:"service_key,snappy"`

	// FlagID is the flag raised on the row
	FlagID int32 `parquet:"flag_id,snappy"`

	// FlagName is the symbolic flag name, e.g. UNOPENED_DOOR
	FlagName string `parquet:"flag_name,snappy,dict"`

	// ServiceDate is midnight UTC of the service day
	ServiceDate time.Time `parquet:"service_date,snappy"`
}

// Flag is one row of the flags reference table.
type Flag struct {
	FlagID      int32   `parquet:"flag_id,snappy"`
	Name        string  `parquet:"name,snappy"`
	Description *string `parquet:"description,optional,snappy"`
}

// WriteFlaggedDataParquet writes flagged rows to a Parquet file.
func WriteFlaggedDataParquet(data []FlaggedData, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteFlagsParquet writes the flags reference table to a Parquet file.
func WriteFlagsParquet(data []Flag, outputPath string) error {
	return writeParquet(data, outputPath)
}

func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the struct tags of T
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to flush parquet file: %w", err)
	}
	return nil
}

// ConvertFlaggedRecords converts hive rows to FlaggedData for Parquet export.
func ConvertFlaggedRecords(records []schema.FlaggedRecord) []FlaggedData {
	result := make([]FlaggedData, len(records))
	for i, record := range records {
		result[i] = FlaggedData{
			RowID:       record.RowID,
			ServiceKey:  record.ServiceKey,
			FlagID:      int32(record.FlagID),
			FlagName:    record.FlagID.Name(),
			ServiceDate: record.ServiceDate,
		}
	}
	return result
}

// ConvertFlags converts flag reference rows for Parquet export.
// Empty descriptions become nulls.
func ConvertFlags(flags []schema.Flag) []Flag {
	result := make([]Flag, len(flags))
	for i, f := range flags {
		result[i] = Flag{FlagID: int32(f.FlagID), Name: f.Name}
		if f.Description != "" {
			desc := f.Description
			result[i].Description = &desc
		}
	}
	return result
}

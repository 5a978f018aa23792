package hive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/internal/parquet"
)

// ExecuteHiveExport exports flagged_data and flags to Parquet files named
// after outputFile.
func ExecuteHiveExport(ctx context.Context, w io.Writer, store contract.HiveStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}

	status, err := store.GetStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to get hive status: %w", err)
	}
	if status.TotalFlagged == 0 {
		return errors.New("no flagged data found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total flagged rows: %d\n", status.TotalFlagged)

	rows, err := store.GetAllFlaggedRows(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve flagged rows: %w", err)
	}
	flags, err := store.GetFlags(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve flags: %w", err)
	}

	flaggedFile := outputFile + ".flagged_data.parquet"
	if err := parquet.WriteFlaggedDataParquet(parquet.ConvertFlaggedRecords(rows), flaggedFile); err != nil {
		return fmt.Errorf("failed to write flagged data: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d flagged rows to: %s\n", len(rows), flaggedFile)

	flagsFile := outputFile + ".flags.parquet"
	if err := parquet.WriteFlagsParquet(parquet.ConvertFlags(flags), flagsFile); err != nil {
		return fmt.Errorf("failed to write flags: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d flags to: %s\n", len(flags), flagsFile)

	_, _ = fmt.Fprintln(w, "\nExport complete! The Parquet files can be used with DuckDB, pandas (via pyarrow) or Spark.")
	return nil
}

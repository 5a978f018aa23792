package cmd

import (
	"fmt"
	"os"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/internal/hive"
	"github.com/spf13/cobra"
)

// sourceCmd groups the source development tools.
var sourceCmd = &cobra.Command{
	Use:   "source",
	Short: "Development tools for a local ctran_data source table",
	Long: `Create and fill a mock ctran_data table so the pipeline can run without
access to the production source database.

Subcommands:
  create - Create the ctran_data table
  import - Import stop events from a CSV file
  drop   - Drop the ctran_data table

Examples:
  pipeline source create
  pipeline source import testdata/stops.csv`,
}

// sourceCreateCmd creates the mock source table.
var sourceCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Create the ctran_data table",
	PreRunE: sourceSetup,
	Run: func(_ *cobra.Command, _ []string) {
		store := hive.Manager.GetSourceStore()
		if err := store.CreateTable(rootCtx); err != nil {
			contract.LogFatal("Failed to create source table", err)
		}
		fmt.Println("Source table created successfully.")
	},
}

// sourceDropCmd drops the mock source table.
var sourceDropCmd = &cobra.Command{
	Use:     "drop",
	Short:   "Drop the ctran_data table",
	PreRunE: sourceSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := hive.Manager.GetSourceStore().DropTable(rootCtx); err != nil {
			contract.LogFatal("Failed to drop source table", err)
		}
		fmt.Println("Source table dropped successfully.")
	},
}

// sourceImportCmd imports stop events from CSV.
var sourceImportCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import stop events from a CSV file into ctran_data",
	Long: `Read stop events from a CSV file whose header names the ctran_data columns
(row_id, service_date, vehicle_number, ...) and insert them. Empty cells become NULL.
Service dates may be YYYY-MM-DD or YYYY/MM/DD.

Examples:
  pipeline source import stops.csv`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sourceSetup,
	Run: func(_ *cobra.Command, args []string) {
		file, err := os.Open(args[0])
		if err != nil {
			contract.LogFatal("Failed to open CSV file", err)
		}
		defer func() { _ = file.Close() }()

		records, err := hive.ParseSourceCSV(file)
		if err != nil {
			contract.LogFatal("Failed to parse CSV file", err)
		}
		store := hive.Manager.GetSourceStore()
		if err := store.CreateTable(rootCtx); err != nil {
			contract.LogFatal("Failed to create source table", err)
		}
		if err := store.InsertRecords(rootCtx, records); err != nil {
			contract.LogFatal("Failed to import records", err)
		}
		fmt.Printf("Imported %d records from %s.\n", len(records), args[0])
	},
}

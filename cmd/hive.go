package cmd

import (
	"fmt"
	"os"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/internal/hive"
	"github.com/ctran-hive/pipeline/internal/outwriter"
	"github.com/ctran-hive/pipeline/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// hiveStore returns the initialized hive or exits.
func hiveStore() contract.HiveStore {
	store := hive.Manager.GetHiveStore()
	if store == nil {
		contract.LogFatal("Hive is not configured", fmt.Errorf("hive-backend is empty"))
	}
	return store
}

// hiveCmd focused on hive management.
//
// Note: Hive subcommands open the hive only. The source database is never touched.
var hiveCmd = &cobra.Command{
	Use:   "hive",
	Short: "Manage the flag hive (flags, service_periods, flagged_data)",
	Long: `Manage the database holding the flagging output.

The hive has three tables:
  flags           - one row per flag, filled from the built-in enumeration
  service_periods - month/year/ternary buckets with a surrogate service_key
  flagged_data    - one row per (record, flag) pair

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (in-memory)
On PostgreSQL the tables live in --hive-schema (default "hive").

Subcommands:
  create  - Create the schema and tables
  drop    - Drop the tables (or the whole schema with --schema)
  migrate - Run versioned schema migrations
  status  - Show row counts and the checkpoint
  export  - Export flagged_data to Parquet

Examples:
  # Check the checkpoint
  pipeline hive status

  # Set up a PostgreSQL hive
  PIPELINE_HIVE_BACKEND=postgresql PIPELINE_HIVE_DB_CONNECT="host=..." pipeline hive migrate`,
}

// hiveCreateCmd creates the hive tables.
var hiveCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create the hive schema and tables",
	Long: `Create the hive schema (PostgreSQL only) and tables if they do not exist.
The flags table is filled from the built-in enumeration.

Examples:
  pipeline hive create`,
	PreRunE: hiveSetup,
	Run: func(_ *cobra.Command, _ []string) {
		store := hiveStore()
		if err := store.CreateSchema(rootCtx); err != nil {
			contract.LogFatal("Failed to create hive schema", err)
		}
		if err := store.CreateTables(rootCtx); err != nil {
			contract.LogFatal("Failed to create hive tables", err)
		}
		fmt.Println("Hive tables created successfully.")
	},
}

// hiveDropCmd drops the hive tables.
var hiveDropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the hive tables",
	Long: `Drop the flag views and the hive tables.

With --schema on PostgreSQL the whole hive schema is dropped instead.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  # Export before dropping
  pipeline hive export --output-file backup
  pipeline hive drop`,
	PreRunE: hiveSetup,
	Run: func(_ *cobra.Command, _ []string) {
		store := hiveStore()
		var err error
		if viper.GetBool("schema") {
			err = store.DropSchema(rootCtx)
		} else {
			err = store.DropTables(rootCtx)
		}
		if err != nil {
			contract.LogFatal("Failed to drop hive", err)
		}
		fmt.Println("Hive dropped successfully.")
	},
}

// hiveMigrateCmd runs database migrations for the hive.
var hiveMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage schema versions of the hive.

By default, migrates to the latest version. Use --target-version for specific versions.
The flags table is filled after every upgrade.

Examples:
  # Migrate to latest version (default)
  pipeline hive migrate

  # Migrate to specific version
  pipeline hive migrate --target-version 2

  # Rollback to initial state
  pipeline hive migrate --target-version 0`,
	PreRunE: hiveMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := hive.MigrateHive(rootCtx, os.Stdout, cfg.HiveBackend, cfg.HiveDBConnect, cfg.HiveSchema, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}

// hiveStatusCmd shows hive status.
var hiveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display hive row counts, checkpoint and connection details",
	Long: `Show the hive backend, the row count of every table, the total number of
flagged rows and the latest processed service day.

Examples:
  pipeline hive status`,
	PreRunE: hiveSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := hiveStore().GetStatus(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get hive status", err)
		}
		if err := outwriter.NewOutWriter(os.Stdout).WriteStatus(status); err != nil {
			contract.LogFatal("Failed to print hive status", err)
		}
	},
}

// hiveExportCmd exports flagged data to Parquet files.
var hiveExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export flagged data to Parquet for BI tools and analytics",
	Long: `Export the flagged rows and the flags reference table to Parquet.

Writes <output-file>.flagged_data.parquet and <output-file>.flags.parquet.

Requires: --output-file parameter

Examples:
  pipeline hive export --output-file ctran
  duckdb -c "SELECT flag_name, count(*) FROM read_parquet('ctran.flagged_data.parquet') GROUP BY 1"`,
	PreRunE: hiveSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := hive.ExecuteHiveExport(rootCtx, os.Stdout, hiveStore(), viper.GetString("output-file")); err != nil {
			contract.LogFatal("Failed to export hive data", err)
		}
	},
}

// viewsCmd groups the flag view commands.
var viewsCmd = &cobra.Command{
	Use:   "views",
	Short: "Manage one SQL view per flag over flagged_data",
}

// viewsCreateCmd creates the flag views.
var viewsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a flagged_<name> view for every flag",
	Long: `Create or replace one view per flag, e.g. flagged_duplicate, selecting the
flagged rows that carry that flag.

Examples:
  pipeline views create`,
	PreRunE: hiveSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := hiveStore().CreateFlagViews(rootCtx); err != nil {
			contract.LogFatal("Failed to create views", err)
		}
		fmt.Printf("Created %d flag views.\n", len(schema.FlagDescriptions))
	},
}

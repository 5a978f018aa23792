// Package cmd defines the command-line interface for pipeline.
package cmd

import (
	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(nextDayCmd)
	rootCmd.AddCommand(sinceCheckpointCmd)
	rootCmd.AddCommand(reprocessCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(hiveCmd)
	rootCmd.AddCommand(viewsCmd)
	rootCmd.AddCommand(sourceCmd)
	rootCmd.AddCommand(flagsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	// Add the hive subcommands to the parent hive command
	hiveCmd.AddCommand(hiveCreateCmd)
	hiveCmd.AddCommand(hiveDropCmd)
	hiveCmd.AddCommand(hiveMigrateCmd)
	hiveCmd.AddCommand(hiveStatusCmd)
	hiveCmd.AddCommand(hiveExportCmd)

	viewsCmd.AddCommand(viewsCreateCmd)

	sourceCmd.AddCommand(sourceCreateCmd)
	sourceCmd.AddCommand(sourceImportCmd)
	sourceCmd.AddCommand(sourceDropCmd)

	flagsCmd.AddCommand(flagsListCmd)
	flagsCmd.AddCommand(flagsLookupCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("source-backend", string(schema.SQLiteBackend), "Source backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("source-db-connect", "", "Database connection string of the ctran_data source")
	rootCmd.PersistentFlags().String("hive-backend", string(schema.SQLiteBackend), "Hive backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("hive-db-connect", "", "Database connection string of the hive (e.g., host=... dbname=ctran)")
	rootCmd.PersistentFlags().String("hive-schema", schema.DefaultHiveSchema, "PostgreSQL schema holding the hive tables")
	rootCmd.PersistentFlags().String("output", string(schema.TableOut), "Output: table or csv or both")
	rootCmd.PersistentFlags().String("output-path", contract.DefaultOutputPath, "Directory for csv output")
	rootCmd.PersistentFlags().Bool("restart", false, "Run under a supervisor: fatal conditions exit with code 75")
	rootCmd.PersistentFlags().Bool("skip-duplicates", false, "Run without the duplicate batch rule")
	rootCmd.PersistentFlags().Int("max-skipped-rows", contract.DefaultMaxSkippedRows, "Records that may fail service key resolution before a restart run aborts (-1 = unlimited)")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent row-pass workers")
	rootCmd.PersistentFlags().String("kafka-brokers", "", "Comma-separated Kafka brokers; flagged rows are published when set")
	rootCmd.PersistentFlags().String("kafka-topic", contract.DefaultKafkaTopic, "Kafka topic for flagged rows")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", string(schema.TextLog), "Log format: text or json")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("start", "", "First service day (YYYY/MM/DD)")
	rootCmd.PersistentFlags().String("end", "", "Last service day (YYYY/MM/DD)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of hiveMigrateCmd to Viper
	hiveMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(hiveMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding hive migrate flags", err)
	}

	// Bind all flags of hiveExportCmd to Viper
	hiveExportCmd.Flags().String("output-file", "", "Prefix of the Parquet files to write")
	if err := viper.BindPFlags(hiveExportCmd.Flags()); err != nil {
		contract.LogFatal("Error binding hive export flags", err)
	}

	// Bind all flags of hiveDropCmd to Viper
	hiveDropCmd.Flags().Bool("schema", false, "Drop the whole hive schema (PostgreSQL only)")
	if err := viper.BindPFlags(hiveDropCmd.Flags()); err != nil {
		contract.LogFatal("Error binding hive drop flags", err)
	}
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/internal/hive"
	"github.com/ctran-hive/pipeline/schema"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// logger is the structured logger handed to the core. It is replaced once
// the log level and format are known.
var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Flag suspicious transit stop events and track a processing checkpoint.",
	Long: `Pipeline extracts CTran stop events for a range of service days, runs a fixed set of
flagging rules over them and stores every (record, flag) pair in the flag hive.

The latest service day in the hive is the checkpoint: next-day and since-checkpoint
runs pick up where the previous run stopped.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in the .env file, config file and ENV variables if set.
func initConfig() {
	// Credentials are commonly kept in a .env file next to the config
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		contract.LogWarn("Could not read .env file", err)
	}

	setConfigFile()

	// Set environment variable prefix
	viper.SetEnvPrefix("PIPELINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("source-backend", schema.SQLiteBackend)
	viper.SetDefault("source-db-connect", "")
	viper.SetDefault("hive-backend", schema.SQLiteBackend)
	viper.SetDefault("hive-db-connect", "")
	viper.SetDefault("hive-schema", schema.DefaultHiveSchema)
	viper.SetDefault("output", schema.TableOut)
	viper.SetDefault("output-path", contract.DefaultOutputPath)
	viper.SetDefault("max-skipped-rows", contract.DefaultMaxSkippedRows)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("kafka-topic", contract.DefaultKafkaTopic)
	viper.SetDefault("log-level", contract.DefaultLogLevel)
	viper.SetDefault("log-format", schema.TextLog)
	viper.SetDefault("color", "yes")
}

// setConfigFile points viper at --config or the default .pipeline.yaml locations.
func setConfigFile() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".pipeline") // Name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME")
}

// loadConfig merges defaults, file, env and flags, then validates them into cfg.
// prepare may adjust the raw input before validation.
func loadConfig(prepare func(*contract.ConfigRawInput)) error {
	// 1. Read config file. A missing file is fine; we'll use defaults/env/flags.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if prepare != nil {
		prepare(input)
	}

	// 3. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}

	color.NoColor = !cfg.UseColors
	logger = contract.NewLogger(os.Stderr, cfg.LogFormat, cfg.LogLevel)
	return nil
}

// sharedSetup validates the config and opens both the source and the hive.
func sharedSetup(ctx context.Context, _ *cobra.Command, _ []string) error {
	if err := loadConfig(nil); err != nil {
		return err
	}
	if err := hive.InitStores(ctx, cfg); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// hiveSetup opens the hive only. Used by hive, views and flags commands.
func hiveSetup(_ *cobra.Command, _ []string) error {
	if err := loadConfig(nil); err != nil {
		return err
	}
	storeCfg := cfg.Clone()
	storeCfg.SourceBackend = ""
	if err := hive.InitStores(rootCtx, storeCfg); err != nil {
		return fmt.Errorf("failed to initialize hive: %w", err)
	}
	return nil
}

// sourceSetup opens the source store only. Used by the source dev tools.
func sourceSetup(_ *cobra.Command, _ []string) error {
	if err := loadConfig(nil); err != nil {
		return err
	}
	storeCfg := cfg.Clone()
	storeCfg.HiveBackend = ""
	if err := hive.InitStores(rootCtx, storeCfg); err != nil {
		return fmt.Errorf("failed to initialize source: %w", err)
	}
	return nil
}

// hiveMigrateSetup loads the configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func hiveMigrateSetup(_ *cobra.Command, _ []string) error {
	return loadConfig(nil)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

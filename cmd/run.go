package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ctran-hive/pipeline/core"
	"github.com/ctran-hive/pipeline/core/flaggers"
	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/internal/hive"
	"github.com/ctran-hive/pipeline/internal/outwriter"
	"github.com/ctran-hive/pipeline/schema"
	"github.com/spf13/cobra"
)

// errStartRequired is returned by range commands invoked without --start.
var errStartRequired = errors.New("start date required (use --start YYYY/MM/DD)")

// runPipeline wires the stores, rules and sinks and runs one pipeline operation.
// The run report is printed even when the run fails.
func runPipeline(ctx context.Context, run func(*core.Orchestrator) (*schema.RunReport, error)) error {
	source := hive.Manager.GetSourceStore()
	store := hive.Manager.GetHiveStore()
	if source == nil || store == nil {
		return fmt.Errorf("source and hive stores must both be configured")
	}

	registry, err := flaggers.DefaultRegistry(!cfg.SkipDuplicates)
	if err != nil {
		return err
	}
	sinks := outwriter.BuildSinks(cfg, store, logger)
	defer func() {
		if err := outwriter.CloseSinks(sinks); err != nil {
			contract.LogWarn("Failed to close sinks", err)
		}
	}()

	orchestrator := core.NewOrchestrator(source, store, registry, sinks, core.OptionsFromConfig(cfg), logger)
	report, err := run(orchestrator)
	if report != nil {
		if werr := outwriter.NewOutWriter(os.Stdout).WriteReport(report); werr != nil {
			contract.LogWarn("Failed to print run report", werr)
		}
	}
	return err
}

// requireStart fails range commands that were given no --start.
func requireStart(_ *cobra.Command, _ []string) error {
	if cfg.StartDate.IsZero() {
		return errStartRequired
	}
	return nil
}

// processCmd flags an explicit date range.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Flag every stop event in a range of service days",
	Long: `Extract the stop events of [--start, --end], flag them and deliver the rows to the
configured outputs.

A missing --end processes the single day given by --start. Reversed dates are swapped.

Output:
  table - append rows to the hive flagged_data table (default)
  csv   - write flags.csv, flagged_data.csv and service_periods.csv to --output-path
  both  - do both

Rows are published to Kafka as well when --kafka-brokers is set.

Examples:
  # Flag one day
  pipeline process --start 2019/03/14

  # Flag a week into CSV files
  pipeline process --start 2019/03/01 --end 2019/03/07 --output csv --output-path ./out`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := sharedSetupWrapper(cmd, args); err != nil {
			return err
		}
		return requireStart(cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return runPipeline(rootCtx, func(o *core.Orchestrator) (*schema.RunReport, error) {
			return o.ProcessData(rootCtx, cfg.StartDate, cfg.EndDate)
		})
	},
}

// nextDayCmd processes the day after the checkpoint.
var nextDayCmd = &cobra.Command{
	Use:   "next-day",
	Short: "Flag the service day after the latest processed day",
	Long: `Read the checkpoint (the latest service day in flagged_data) and process the day after it.

With --restart the pipeline runs under a supervisor: a missing checkpoint, or more skipped
records than --max-skipped-rows, ends the process with exit code 75 so it is restarted.

Examples:
  # Daily cron job
  pipeline next-day

  # Supervised run tolerating at most 100 unresolvable records
  pipeline next-day --restart --max-skipped-rows 100`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runPipeline(rootCtx, func(o *core.Orchestrator) (*schema.RunReport, error) {
			return o.ProcessNextDay(rootCtx)
		})
	},
}

// sinceCheckpointCmd catches up from the checkpoint through today.
var sinceCheckpointCmd = &cobra.Command{
	Use:   "since-checkpoint",
	Short: "Flag every service day after the latest processed day through today",
	Long: `Process the range from the day after the checkpoint through today.

Nothing is processed when the checkpoint is already current.

Examples:
  # Catch up after downtime
  pipeline since-checkpoint`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		err := runPipeline(rootCtx, func(o *core.Orchestrator) (*schema.RunReport, error) {
			return o.ProcessSinceCheckpoint(rootCtx)
		})
		if errors.Is(err, core.ErrNothingToProcess) {
			fmt.Println(contract.InfoColor.Sprint("Nothing to process: ") + err.Error())
			return nil
		}
		return err
	},
}

// reprocessCmd replaces the rows of a range.
var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Delete and re-flag a range of service days",
	Long: `Delete the flagged rows of [--start, --end] and process the range again.

Use this after changing rule thresholds or fixing source data. Reprocessing a range
leaves the hive as if the range had been processed once.

Examples:
  # Re-flag March 2019 with stricter dwell limits
  pipeline reprocess --start 2019/03/01 --end 2019/03/31`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := sharedSetupWrapper(cmd, args); err != nil {
			return err
		}
		return requireStart(cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return runPipeline(rootCtx, func(o *core.Orchestrator) (*schema.RunReport, error) {
			return o.Reprocess(rootCtx, cfg.StartDate, cfg.EndDate)
		})
	},
}

// deleteBounds holds the raw bounds of the delete command. Either may be open.
var deleteBounds struct {
	start, end string
}

// deleteCmd removes flagged rows without processing.
var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete flagged rows in a range of service days",
	Long: `Delete the flagged rows whose service date lies in [--start, --end].

Either bound may be omitted to leave that side open; at least one is required.

Examples:
  # Delete one day
  pipeline delete --start 2019/03/14 --end 2019/03/14

  # Delete everything up to a day
  pipeline delete --end 2019/02/28`,
	PreRunE: func(_ *cobra.Command, _ []string) error {
		if err := loadConfig(func(raw *contract.ConfigRawInput) {
			// Open bounds are parsed below rather than defaulted
			deleteBounds.start, deleteBounds.end = raw.Start, raw.End
			raw.Start, raw.End = "", ""
		}); err != nil {
			return err
		}
		storeCfg := cfg.Clone()
		storeCfg.SourceBackend = ""
		return hive.InitStores(rootCtx, storeCfg)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		start, end, err := parseOpenRange(deleteBounds.start, deleteBounds.end)
		if err != nil {
			return err
		}
		store := hive.Manager.GetHiveStore()
		if store == nil {
			return fmt.Errorf("hive store is not configured")
		}
		orchestrator := core.NewOrchestrator(nil, store, core.NewRegistry(), nil, core.OptionsFromConfig(cfg), logger)
		n, err := orchestrator.DeleteRange(rootCtx, start, end)
		if err != nil {
			return err
		}
		return outwriter.NewOutWriter(os.Stdout).WriteDeleted(n, start, end)
	},
}

// parseOpenRange parses optional bounds; a missing bound stays zero.
func parseOpenRange(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" && endStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("at least one of --start or --end is required")
	}
	var start, end time.Time
	var err error
	if startStr != "" {
		if start, err = schema.ParseInputDate(startStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %w", err)
		}
	}
	if endStr != "" {
		if end, err = schema.ParseInputDate(endStr); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %w", err)
		}
	}
	return start, end, nil
}

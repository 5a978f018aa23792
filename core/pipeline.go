// Package core has the flagging and checkpointing engine of the pipeline.
package core

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/schema"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options tune a pipeline run.
type Options struct {
	Workers    int
	Restart    bool
	MaxSkipped *int // nil disables the skip budget
	Rules      schema.RuleConfig
	TrackDates bool  // collect distinct service dates for sinks that need them
	Now        Clock // nil uses time.Now
}

// OptionsFromConfig derives run options from the validated config.
func OptionsFromConfig(cfg *contract.Config) Options {
	return Options{
		Workers:    cfg.Workers,
		Restart:    cfg.Restart,
		MaxSkipped: cfg.MaxSkippedRows,
		Rules:      cfg.Rules,
		TrackDates: cfg.Output.WritesCSV(),
	}
}

// Orchestrator runs extraction, the row pass, the duplicate pass and delivery.
type Orchestrator struct {
	source     contract.SourceStore
	hive       contract.HiveStore
	registry   *Registry
	sinks      []contract.Sink
	opts       Options
	logger     *slog.Logger
	resolver   *Resolver
	controller *Controller
}

// NewOrchestrator wires the stores, rules and sinks of a pipeline.
func NewOrchestrator(source contract.SourceStore, hive contract.HiveStore, registry *Registry, sinks []contract.Sink, opts Options, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Orchestrator{
		source:     source,
		hive:       hive,
		registry:   registry,
		sinks:      sinks,
		opts:       opts,
		logger:     logger,
		resolver:   NewResolver(hive),
		controller: NewController(hive, opts.Now, opts.Restart),
	}
}

// rowPassResult is what one worker accumulates.
type rowPassResult struct {
	rows  []schema.FlaggedRow
	dates map[time.Time]struct{}
}

// ProcessData flags every record with a service date in [start, end].
// Reversed endpoints are swapped.
func (o *Orchestrator) ProcessData(ctx context.Context, start, end time.Time) (*schema.RunReport, error) {
	began := time.Now()
	start, end = contract.OrderDates(schema.Day(start), schema.Day(end))
	state := NewRunState()
	report := &schema.RunReport{RunID: uuid.NewString(), Start: start, End: end}
	logger := o.logger.With(slog.String("run_id", report.RunID))

	finish := func(err error) (*schema.RunReport, error) {
		report.State = state.Current()
		report.Duration = time.Since(began)
		if err != nil {
			report.Message = err.Error()
		}
		return report, err
	}
	abort := func(err error) (*schema.RunReport, error) {
		_ = state.Transition(schema.StateAborted)
		logger.Error("run aborted", slog.Any("error", err))
		return finish(err)
	}

	if err := state.Transition(schema.StateRangeResolved); err != nil {
		return finish(err)
	}
	logger.Info("processing range",
		slog.String("start", schema.FormatFlagDate(start)),
		slog.String("end", schema.FormatFlagDate(end)))

	// Extract
	if err := state.Transition(schema.StateExtracting); err != nil {
		return finish(err)
	}
	records, err := o.source.QueryDateRange(ctx, start, end)
	if err != nil {
		return abort(fmt.Errorf("%w: %w", ErrExtractionUnavailable, err))
	}
	if len(records) == 0 {
		return abort(fmt.Errorf("%w: %s to %s", ErrExtractionUnavailable, schema.FormatFlagDate(start), schema.FormatFlagDate(end)))
	}
	report.Records = len(records)

	// Row pass
	if err := state.Transition(schema.StateRowPass); err != nil {
		return finish(err)
	}
	budget := NewSkipBudget(o.opts.Restart, o.opts.MaxSkipped)
	engine := NewEngine(o.registry, logger)
	merged, err := o.rowPass(ctx, logger, records, budget, engine)
	report.Skipped = budget.Count()
	report.RuleFailures = engine.Failures()
	if err != nil {
		return abort(err)
	}

	// Duplicate pass
	if err := state.Transition(schema.StateDuplicatePass); err != nil {
		return finish(err)
	}
	dupRows, dupSkipped, checked := o.duplicatePass(ctx, logger, records, merged.dates)
	merged.rows = append(merged.rows, dupRows...)
	report.DuplicateRows = len(dupRows)
	report.DuplicateChecked = checked
	report.Skipped += dupSkipped

	slices.SortStableFunc(merged.rows, func(a, b schema.FlaggedRow) int {
		return cmp.Or(cmp.Compare(a.RowID, b.RowID), cmp.Compare(a.FlagID, b.FlagID))
	})
	report.FlaggedRows = len(merged.rows)

	// Persist
	if err := state.Transition(schema.StatePersisting); err != nil {
		return finish(err)
	}
	dates := slices.SortedFunc(maps.Keys(merged.dates), func(a, b time.Time) int { return a.Compare(b) })
	var sinkErrs []error
	for _, sink := range o.sinks {
		if err := sink.Write(ctx, merged.rows, dates); err != nil {
			logger.Error("sink failed", slog.String("sink", sink.Name()), slog.Any("error", err))
			sinkErrs = append(sinkErrs, fmt.Errorf("sink %s: %w", sink.Name(), err))
			continue
		}
		report.Sinks = append(report.Sinks, sink.Name())
	}
	if err := errors.Join(sinkErrs...); err != nil {
		return finish(err)
	}

	if err := state.Transition(schema.StateDone); err != nil {
		return finish(err)
	}
	logger.Info("run complete",
		slog.Int("records", report.Records),
		slog.Int("flagged_rows", report.FlaggedRows),
		slog.Int64("skipped", report.Skipped))
	return finish(nil)
}

// rowPass resolves and evaluates records on a bounded pool of workers.
// A fatal skip budget error cancels the remaining work.
func (o *Orchestrator) rowPass(ctx context.Context, logger *slog.Logger, records []schema.Record, budget *SkipBudget, engine *Engine) (rowPassResult, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Workers + 1)

	recordCh := make(chan schema.Record)
	var mu sync.Mutex
	merged := rowPassResult{dates: make(map[time.Time]struct{})}

	for range o.opts.Workers {
		g.Go(func() error {
			local := rowPassResult{dates: make(map[time.Time]struct{})}
			defer func() {
				mu.Lock()
				merged.rows = append(merged.rows, local.rows...)
				maps.Copy(merged.dates, local.dates)
				mu.Unlock()
			}()

			for rec := range recordCh {
				if o.opts.TrackDates && !rec.ServiceDate.IsZero() {
					local.dates[schema.Day(rec.ServiceDate)] = struct{}{}
				}
				key, err := o.resolver.Resolve(gctx, rec.ServiceDate)
				if err != nil {
					logger.Warn("skipping record", slog.Int64("row_id", rec.RowID), slog.Any("error", err))
					if ferr := budget.Record(); ferr != nil {
						return ferr
					}
					continue
				}
				date := schema.FormatFlagDate(rec.ServiceDate)
				for _, flag := range engine.Evaluate(rec, &o.opts.Rules) {
					local.rows = append(local.rows, schema.FlaggedRow{RowID: rec.RowID, ServiceKey: key, FlagID: flag, Date: date})
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(recordCh)
		for _, rec := range records {
			select {
			case recordCh <- rec:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return merged, err
	}
	if err := ctx.Err(); err != nil {
		return merged, err
	}
	return merged, nil
}

// duplicatePass runs the batch rule once over the whole extract.
// Failures abandon this pass only.
func (o *Orchestrator) duplicatePass(ctx context.Context, logger *slog.Logger, records []schema.Record, dates map[time.Time]struct{}) ([]schema.FlaggedRow, int64, bool) {
	rule := o.registry.BatchRule()
	if rule == nil {
		logger.Warn("This run is not checking for duplicates.")
		return nil, 0, false
	}

	dups, err := rule.Flag(records, &o.opts.Rules)
	if err != nil {
		logger.Error("duplicate pass abandoned", slog.String("rule", rule.Name()), slog.Any("error", err))
		return nil, 0, false
	}

	var rows []schema.FlaggedRow
	var skipped int64
	for _, dup := range dups {
		key, err := o.resolver.Resolve(ctx, dup.ServiceDate)
		if err != nil {
			logger.Warn("skipping duplicate row", slog.Int64("row_id", dup.RowID), slog.Any("error", err))
			skipped++
			continue
		}
		if o.opts.TrackDates {
			dates[schema.Day(dup.ServiceDate)] = struct{}{}
		}
		rows = append(rows, schema.FlaggedRow{
			RowID:      dup.RowID,
			ServiceKey: key,
			FlagID:     schema.FlagDuplicate,
			Date:       schema.FormatFlagDate(dup.ServiceDate),
		})
	}
	return rows, skipped, true
}

// ProcessNextDay processes the day after the hive checkpoint.
func (o *Orchestrator) ProcessNextDay(ctx context.Context) (*schema.RunReport, error) {
	start, end, err := o.controller.NextDayRange(ctx)
	if err != nil {
		return nil, err
	}
	return o.ProcessData(ctx, start, end)
}

// ProcessSinceCheckpoint processes every day after the hive checkpoint through today.
func (o *Orchestrator) ProcessSinceCheckpoint(ctx context.Context) (*schema.RunReport, error) {
	start, end, err := o.controller.SinceCheckpointRange(ctx)
	if err != nil {
		return nil, err
	}
	return o.ProcessData(ctx, start, end)
}

// Reprocess deletes the flagged rows of [start, end] and processes the range again.
func (o *Orchestrator) Reprocess(ctx context.Context, start, end time.Time) (*schema.RunReport, error) {
	start, end = contract.OrderDates(schema.Day(start), schema.Day(end))
	n, err := o.DeleteRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	o.logger.Info("deleted flagged rows for reprocessing",
		slog.Int64("rows", n),
		slog.String("start", schema.FormatFlagDate(start)),
		slog.String("end", schema.FormatFlagDate(end)))
	return o.ProcessData(ctx, start, end)
}

// DeleteRange removes flagged rows with service dates in [start, end].
// A zero bound leaves that side open.
func (o *Orchestrator) DeleteRange(ctx context.Context, start, end time.Time) (int64, error) {
	if !start.IsZero() && !end.IsZero() {
		start, end = contract.OrderDates(start, end)
	}
	n, err := o.hive.DeleteDateRange(ctx, start, end)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRangeDelete, err)
	}
	return n, nil
}

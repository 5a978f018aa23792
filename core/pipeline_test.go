package core_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ctran-hive/pipeline/core"
	"github.com/ctran-hive/pipeline/core/flaggers"
	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/internal/hive"
	"github.com/ctran-hive/pipeline/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func i64(v int64) *int64 { return &v }

func f64(v float64) *float64 { return &v }

func day(d int) time.Time { return time.Date(2019, 3, d, 0, 0, 0, 0, time.UTC) }

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// clean returns a record no rule flags.
func clean(rowID int64, date time.Time) schema.Record {
	return schema.Record{
		RowID:         rowID,
		ServiceDate:   date,
		VehicleNumber: i64(2210),
		TrainNumber:   i64(101),
		RouteNumber:   i64(4),
		LocationID:    i64(1200 + rowID),
		ArriveTime:    i64(28800 + rowID*60),
		LeaveTime:     i64(28810 + rowID*60),
		Dwell:         i64(10),
		Door:          i64(1),
		Ons:           i64(2),
		Offs:          i64(1),
		EstimatedLoad: i64(12),
		MaximumSpeed:  f64(30),
		GPSLongitude:  f64(-122.6),
		GPSLatitude:   f64(45.5),
	}
}

// recordingSink keeps what it receives.
type recordingSink struct {
	mu    sync.Mutex
	rows  []schema.FlaggedRow
	dates []time.Time
	err   error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Write(_ context.Context, rows []schema.FlaggedRow, dates []time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	s.dates = append(s.dates, dates...)
	return s.err
}

func newHive(t *testing.T) *hive.StoreImpl {
	t.Helper()
	store, err := hive.NewHiveStore(context.Background(), schema.SQLiteBackend, ":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sourceWith(t *testing.T, records ...schema.Record) *hive.MockSourceStore {
	t.Helper()
	src := &hive.MockSourceStore{}
	src.On("QueryDateRange", mock.Anything, mock.Anything, mock.Anything).Return(records, nil)
	return src
}

func registry(t *testing.T, withDuplicates bool) *core.Registry {
	t.Helper()
	r, err := flaggers.DefaultRegistry(withDuplicates)
	require.NoError(t, err)
	return r
}

func TestProcessData_CleanRecordsProduceNoRows(t *testing.T) {
	sink := &recordingSink{}
	o := core.NewOrchestrator(sourceWith(t, clean(1, day(4)), clean(2, day(4))), newHive(t), registry(t, true),
		[]contract.Sink{sink}, core.Options{Workers: 2, Rules: schema.DefaultRuleConfig()}, quietLogger())

	report, err := o.ProcessData(context.Background(), day(4), day(4))
	require.NoError(t, err)
	assert.Equal(t, schema.StateDone, report.State)
	assert.Equal(t, 2, report.Records)
	assert.Zero(t, report.FlaggedRows)
	assert.Empty(t, sink.rows)
	assert.True(t, report.DuplicateChecked)
	assert.NotEmpty(t, report.RunID)
}

func TestProcessData_FlagsAndOrdering(t *testing.T) {
	doorless := clean(3, day(5))
	doorless.Door = i64(0)
	wanderer := clean(1, day(4))
	wanderer.GPSLatitude = f64(44.0)
	wanderer.LocationID = nil
	dup := clean(2, day(4))
	dup.LocationID, dup.ArriveTime, dup.LeaveTime = wanderer.LocationID, wanderer.ArriveTime, wanderer.LeaveTime
	dup.GPSLatitude = wanderer.GPSLatitude

	sink := &recordingSink{}
	o := core.NewOrchestrator(sourceWith(t, wanderer, dup, doorless), newHive(t), registry(t, true),
		[]contract.Sink{sink}, core.Options{Workers: 4, Rules: schema.DefaultRuleConfig(), TrackDates: true}, quietLogger())

	report, err := o.ProcessData(context.Background(), day(5), day(4))
	require.NoError(t, err)
	assert.Equal(t, day(4), report.Start, "endpoints are ordered")
	assert.Equal(t, day(5), report.End)

	var got []struct {
		row  int64
		flag schema.FlagID
	}
	for _, r := range sink.rows {
		got = append(got, struct {
			row  int64
			flag schema.FlagID
		}{r.RowID, r.FlagID})
		assert.NotZero(t, r.ServiceKey)
	}
	assert.Equal(t, []struct {
		row  int64
		flag schema.FlagID
	}{
		{1, schema.FlagUnobservedStop},
		{1, schema.FlagLowLatitude},
		{2, schema.FlagDuplicate},
		{2, schema.FlagUnobservedStop},
		{2, schema.FlagLowLatitude},
		{3, schema.FlagUnopenedDoor},
	}, got)
	assert.Equal(t, "2019/3/4", sink.rows[0].Date)
	assert.Equal(t, []time.Time{day(4), day(5)}, sink.dates)
	assert.Equal(t, 1, report.DuplicateRows)
}

func TestProcessData_RangeInversionQueriesOrderedRange(t *testing.T) {
	src := &hive.MockSourceStore{}
	src.On("QueryDateRange", mock.Anything, day(1), day(9)).Return([]schema.Record{clean(1, day(2))}, nil).Once()

	o := core.NewOrchestrator(src, newHive(t), registry(t, true), nil, core.Options{Rules: schema.DefaultRuleConfig()}, quietLogger())
	_, err := o.ProcessData(context.Background(), day(9), day(1))
	require.NoError(t, err)
	src.AssertExpectations(t)
}

func TestProcessData_EmptyExtract(t *testing.T) {
	o := core.NewOrchestrator(sourceWith(t), newHive(t), registry(t, true), nil, core.Options{Rules: schema.DefaultRuleConfig()}, quietLogger())
	report, err := o.ProcessData(context.Background(), day(1), day(1))
	assert.ErrorIs(t, err, core.ErrExtractionUnavailable)
	assert.False(t, core.IsFatal(err))
	assert.Equal(t, schema.StateAborted, report.State)

	src := &hive.MockSourceStore{}
	src.On("QueryDateRange", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
	o = core.NewOrchestrator(src, newHive(t), registry(t, true), nil, core.Options{Rules: schema.DefaultRuleConfig()}, quietLogger())
	_, err = o.ProcessData(context.Background(), day(1), day(1))
	assert.ErrorIs(t, err, core.ErrExtractionUnavailable)
}

func TestProcessData_NoDuplicateRule(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	first := clean(1, day(4))
	second := clean(2, day(4))
	second.LocationID, second.ArriveTime, second.LeaveTime = first.LocationID, first.ArriveTime, first.LeaveTime

	sink := &recordingSink{}
	o := core.NewOrchestrator(sourceWith(t, first, second), newHive(t), registry(t, false), []contract.Sink{sink},
		core.Options{Rules: schema.DefaultRuleConfig()}, logger)

	report, err := o.ProcessData(context.Background(), day(4), day(4))
	require.NoError(t, err)
	assert.False(t, report.DuplicateChecked)
	assert.Contains(t, buf.String(), "This run is not checking for duplicates.")
	for _, r := range sink.rows {
		assert.NotEqual(t, schema.FlagDuplicate, r.FlagID)
	}
}

func TestProcessData_InvalidBatchAbandonsDuplicatePassOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	bad := clean(1, day(4))
	bad.Door = i64(0)
	twin := clean(1, day(4)) // repeated row id

	sink := &recordingSink{}
	o := core.NewOrchestrator(sourceWith(t, bad, twin), newHive(t), registry(t, true), []contract.Sink{sink},
		core.Options{Rules: schema.DefaultRuleConfig()}, logger)

	report, err := o.ProcessData(context.Background(), day(4), day(4))
	require.NoError(t, err)
	assert.False(t, report.DuplicateChecked)
	assert.Equal(t, schema.StateDone, report.State)
	assert.Contains(t, buf.String(), "level=ERROR")
	require.Len(t, sink.rows, 1)
	assert.Equal(t, schema.FlagUnopenedDoor, sink.rows[0].FlagID)
}

func failingResolution(t *testing.T) *hive.MockHiveStore {
	t.Helper()
	store := &hive.MockHiveStore{}
	store.On("GetOrCreateServiceKey", mock.Anything, mock.Anything).Return(int64(0), errors.New("lost connection"))
	return store
}

func TestProcessData_SkipBudgetBoundary(t *testing.T) {
	limit := 3
	records := func(n int) []schema.Record {
		var out []schema.Record
		for i := range n {
			out = append(out, clean(int64(i+1), day(4)))
		}
		return out
	}

	o := core.NewOrchestrator(sourceWith(t, records(3)...), failingResolution(t), registry(t, true), nil,
		core.Options{Workers: 1, Restart: true, MaxSkipped: &limit, Rules: schema.DefaultRuleConfig()}, quietLogger())
	report, err := o.ProcessData(context.Background(), day(4), day(4))
	require.NoError(t, err, "three skips with a maximum of three is tolerated")
	assert.Equal(t, int64(3), report.Skipped)

	o = core.NewOrchestrator(sourceWith(t, records(4)...), failingResolution(t), registry(t, true), nil,
		core.Options{Workers: 1, Restart: true, MaxSkipped: &limit, Rules: schema.DefaultRuleConfig()}, quietLogger())
	report, err = o.ProcessData(context.Background(), day(4), day(4))
	require.Error(t, err)
	assert.True(t, core.IsFatal(err))
	assert.ErrorIs(t, err, core.ErrSkipBudgetExceeded)
	assert.Equal(t, schema.StateAborted, report.State)

	o = core.NewOrchestrator(sourceWith(t, records(10)...), failingResolution(t), registry(t, true), nil,
		core.Options{Workers: 3, Restart: false, MaxSkipped: &limit, Rules: schema.DefaultRuleConfig()}, quietLogger())
	report, err = o.ProcessData(context.Background(), day(4), day(4))
	require.NoError(t, err, "without restart mode skips are only reported")
	assert.Equal(t, int64(10), report.Skipped)
}

func TestProcessData_SinkFailure(t *testing.T) {
	broken := &recordingSink{err: errors.New("disk full")}
	ok := &recordingSink{}
	rec := clean(1, day(4))
	rec.Door = i64(0)

	o := core.NewOrchestrator(sourceWith(t, rec), newHive(t), registry(t, true), []contract.Sink{broken, ok},
		core.Options{Rules: schema.DefaultRuleConfig()}, quietLogger())
	report, err := o.ProcessData(context.Background(), day(4), day(4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Len(t, ok.rows, 1, "every sink is attempted")
	assert.Equal(t, schema.StatePersisting, report.State)
}

func TestReprocessReplaces(t *testing.T) {
	ctx := context.Background()
	store := newHive(t)
	rec := clean(1, day(4))
	rec.Door = i64(0)
	other := clean(2, day(6))
	other.Dwell = i64(-5)

	run := func(o *core.Orchestrator, reprocess bool) {
		var err error
		if reprocess {
			_, err = o.Reprocess(ctx, day(4), day(4))
		} else {
			_, err = o.ProcessData(ctx, day(4), day(4))
		}
		require.NoError(t, err)
	}

	src := &hive.MockSourceStore{}
	src.On("QueryDateRange", mock.Anything, day(4), day(4)).Return([]schema.Record{rec}, nil)
	src.On("QueryDateRange", mock.Anything, day(6), day(6)).Return([]schema.Record{other}, nil)
	o := core.NewOrchestrator(src, store, registry(t, true), []contract.Sink{tableSink{store}}, core.Options{Rules: schema.DefaultRuleConfig()}, quietLogger())

	run(o, false)
	_, err := o.ProcessData(ctx, day(6), day(6))
	require.NoError(t, err)
	before, err := store.GetAllFlaggedRows(ctx)
	require.NoError(t, err)

	run(o, true)
	after, err := store.GetAllFlaggedRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "reprocessing yields the same rows")

	// Processing without reprocess would have doubled the day
	run(o, false)
	doubled, err := store.GetAllFlaggedRows(ctx)
	require.NoError(t, err)
	assert.Len(t, doubled, len(before)+1)
}

func TestReprocess_DeleteFailure(t *testing.T) {
	store := &hive.MockHiveStore{}
	store.On("DeleteDateRange", mock.Anything, mock.Anything, mock.Anything).Return(int64(0), errors.New("locked"))
	src := &hive.MockSourceStore{}

	o := core.NewOrchestrator(src, store, registry(t, true), nil, core.Options{Rules: schema.DefaultRuleConfig()}, quietLogger())
	_, err := o.Reprocess(context.Background(), day(1), day(2))
	assert.ErrorIs(t, err, core.ErrRangeDelete)
	src.AssertNotCalled(t, "QueryDateRange", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessNextDayAndSinceCheckpoint(t *testing.T) {
	ctx := context.Background()
	store := newHive(t)
	key, err := store.GetOrCreateServiceKey(ctx, schema.PeriodOf(day(3)))
	require.NoError(t, err)
	require.NoError(t, store.WriteRows(ctx, []schema.FlaggedRow{{RowID: 1, ServiceKey: key, FlagID: schema.FlagMissingData, Date: "2019/3/3"}}))

	src := &hive.MockSourceStore{}
	src.On("QueryDateRange", mock.Anything, day(4), day(4)).Return([]schema.Record{clean(5, day(4))}, nil).Once()
	src.On("QueryDateRange", mock.Anything, day(4), day(7)).Return([]schema.Record{clean(6, day(7))}, nil).Once()

	now := func() time.Time { return time.Date(2019, 3, 7, 12, 0, 0, 0, time.UTC) }
	o := core.NewOrchestrator(src, store, registry(t, true), nil, core.Options{Rules: schema.DefaultRuleConfig(), Now: now}, quietLogger())

	report, err := o.ProcessNextDay(ctx)
	require.NoError(t, err)
	assert.Equal(t, day(4), report.Start)
	assert.Equal(t, day(4), report.End)

	report, err = o.ProcessSinceCheckpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, day(4), report.Start)
	assert.Equal(t, day(7), report.End)
	src.AssertExpectations(t)
}

func TestProcessNextDay_NoCheckpointRestartIsFatal(t *testing.T) {
	o := core.NewOrchestrator(&hive.MockSourceStore{}, newHive(t), registry(t, true), nil,
		core.Options{Restart: true, Rules: schema.DefaultRuleConfig()}, quietLogger())
	_, err := o.ProcessNextDay(context.Background())
	assert.True(t, core.IsFatal(err))
	assert.ErrorIs(t, err, core.ErrCheckpointUnavailable)
}

func TestDeleteRange(t *testing.T) {
	store := &hive.MockHiveStore{}
	store.On("DeleteDateRange", mock.Anything, day(1), day(5)).Return(int64(12), nil).Once()
	store.On("DeleteDateRange", mock.Anything, time.Time{}, day(5)).Return(int64(3), nil).Once()

	o := core.NewOrchestrator(&hive.MockSourceStore{}, store, registry(t, true), nil, core.Options{}, quietLogger())
	n, err := o.DeleteRange(context.Background(), day(5), day(1))
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	n, err = o.DeleteRange(context.Background(), time.Time{}, day(5))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	store.AssertExpectations(t)
}

// tableSink writes straight to the hive.
type tableSink struct {
	store *hive.StoreImpl
}

func (s tableSink) Name() string { return "table" }

func (s tableSink) Write(ctx context.Context, rows []schema.FlaggedRow, _ []time.Time) error {
	return s.store.WriteRows(ctx, rows)
}

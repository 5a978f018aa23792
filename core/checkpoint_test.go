package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ctran-hive/pipeline/internal/hive"
	"github.com/ctran-hive/pipeline/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func checkpointStore(latest time.Time, ok bool, err error) *hive.MockHiveStore {
	store := &hive.MockHiveStore{}
	store.On("LatestProcessedDay", mock.Anything).Return(latest, ok, err)
	return store
}

func TestNextDayRange(t *testing.T) {
	ctx := context.Background()
	latest := time.Date(2019, 2, 28, 0, 0, 0, 0, time.UTC)

	c := NewController(checkpointStore(latest, true, nil), nil, false)
	start, end, err := c.NextDayRange(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, start, end)
}

func TestNextDayRange_NoCheckpoint(t *testing.T) {
	ctx := context.Background()

	_, _, err := NewController(checkpointStore(time.Time{}, false, nil), nil, false).NextDayRange(ctx)
	assert.ErrorIs(t, err, ErrCheckpointUnavailable)
	assert.False(t, IsFatal(err))

	_, _, err = NewController(checkpointStore(time.Time{}, false, nil), nil, true).NextDayRange(ctx)
	assert.ErrorIs(t, err, ErrCheckpointUnavailable)
	assert.True(t, IsFatal(err), "restart mode escalates")

	_, _, err = NewController(checkpointStore(time.Time{}, false, errors.New("down")), nil, false).NextDayRange(ctx)
	assert.ErrorIs(t, err, ErrCheckpointUnavailable)
}

func TestSinceCheckpointRange(t *testing.T) {
	ctx := context.Background()
	latest := time.Date(2019, 3, 10, 0, 0, 0, 0, time.UTC)
	now := time.Date(2019, 3, 15, 17, 45, 0, 0, time.UTC)

	c := NewController(checkpointStore(latest, true, nil), fixedClock(now), true)
	start, end, err := c.SinceCheckpointRange(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 3, 11, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC), end)
}

func TestSinceCheckpointRange_Edges(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2019, 3, 15, 8, 0, 0, 0, time.UTC)

	_, _, err := NewController(checkpointStore(time.Time{}, false, nil), fixedClock(now), true).SinceCheckpointRange(ctx)
	assert.ErrorIs(t, err, ErrCheckpointUnavailable)
	assert.False(t, IsFatal(err), "never fatal")

	// Checkpoint is yesterday: only today remains
	start, end, err := NewController(checkpointStore(time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC), true, nil), fixedClock(now), false).SinceCheckpointRange(ctx)
	require.NoError(t, err)
	assert.Equal(t, start, end)

	// Checkpoint is today: nothing to do
	_, _, err = NewController(checkpointStore(time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC), true, nil), fixedClock(now), false).SinceCheckpointRange(ctx)
	assert.ErrorIs(t, err, ErrNothingToProcess)
}

func TestSkipBudget(t *testing.T) {
	limit := 3

	b := NewSkipBudget(true, &limit)
	for range 3 {
		assert.NoError(t, b.Record())
	}
	err := b.Record()
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, ErrSkipBudgetExceeded)
	assert.Equal(t, int64(4), b.Count())

	// Without restart skips only accumulate
	b = NewSkipBudget(false, &limit)
	for range 10 {
		assert.NoError(t, b.Record())
	}
	assert.Equal(t, int64(10), b.Count())

	// Without a maximum nothing trips
	b = NewSkipBudget(true, nil)
	for range 10 {
		assert.NoError(t, b.Record())
	}

	zero := 0
	assert.Error(t, NewSkipBudget(true, &zero).Record())
}

func TestRunState(t *testing.T) {
	s := NewRunState()
	assert.Equal(t, schema.StateIdle, s.Current())

	for _, next := range []schema.RunState{
		schema.StateRangeResolved, schema.StateExtracting, schema.StateRowPass,
		schema.StateDuplicatePass, schema.StatePersisting, schema.StateDone,
	} {
		require.NoError(t, s.Transition(next))
	}
	assert.ErrorIs(t, s.Transition(schema.StateIdle), ErrIllegalTransition)

	s = NewRunState()
	assert.ErrorIs(t, s.Transition(schema.StateRowPass), ErrIllegalTransition)
	require.NoError(t, s.Transition(schema.StateRangeResolved))
	require.NoError(t, s.Transition(schema.StateAborted))
	assert.Equal(t, schema.StateAborted, s.Current())

	s = NewRunState()
	for _, next := range []schema.RunState{schema.StateRangeResolved, schema.StateExtracting, schema.StateRowPass, schema.StateDuplicatePass} {
		require.NoError(t, s.Transition(next))
	}
	assert.ErrorIs(t, s.Transition(schema.StateAborted), ErrIllegalTransition, "no abort after the row pass")
}

package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/schema"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Controller computes date ranges from the hive checkpoint.
type Controller struct {
	store   contract.FlaggedStore
	now     Clock
	restart bool
}

// NewController creates a Controller. A nil clock uses time.Now.
func NewController(store contract.FlaggedStore, now Clock, restart bool) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{store: store, now: now, restart: restart}
}

func (c *Controller) latest(ctx context.Context) (time.Time, error) {
	day, ok, err := c.store.LatestProcessedDay(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrCheckpointUnavailable, err)
	}
	if !ok {
		return time.Time{}, ErrCheckpointUnavailable
	}
	return schema.Day(day), nil
}

// NextDayRange returns the single day after the checkpoint.
// Without a checkpoint the error is fatal in restart mode.
func (c *Controller) NextDayRange(ctx context.Context) (time.Time, time.Time, error) {
	latest, err := c.latest(ctx)
	if err != nil {
		if c.restart {
			return time.Time{}, time.Time{}, Fatal(err)
		}
		return time.Time{}, time.Time{}, err
	}
	start := latest.AddDate(0, 0, 1)
	return start, start, nil
}

// SinceCheckpointRange returns the range from the day after the checkpoint through today.
func (c *Controller) SinceCheckpointRange(ctx context.Context) (time.Time, time.Time, error) {
	latest, err := c.latest(ctx)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := latest.AddDate(0, 0, 1)
	today := schema.Day(c.now())
	if start.After(today) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: checkpoint %s is already current", ErrNothingToProcess, schema.FormatFlagDate(latest))
	}
	return start, today, nil
}

// SkipBudget counts skipped records and trips when restart mode is on and
// the count exceeds Max.
type SkipBudget struct {
	Restart bool
	Max     *int
	count   atomic.Int64
}

// NewSkipBudget creates a budget. A nil max never trips.
func NewSkipBudget(restart bool, maxSkipped *int) *SkipBudget {
	return &SkipBudget{Restart: restart, Max: maxSkipped}
}

// Record counts one skip and returns a FatalError once the budget is exceeded.
func (b *SkipBudget) Record() error {
	n := b.count.Add(1)
	if b.Restart && b.Max != nil && n > int64(*b.Max) {
		return Fatal(fmt.Errorf("%w: %d skipped, maximum %d", ErrSkipBudgetExceeded, n, *b.Max))
	}
	return nil
}

// Count returns the number of skips recorded.
func (b *SkipBudget) Count() int64 {
	return b.count.Load()
}

// transitions lists the legal successor states.
var transitions = map[schema.RunState][]schema.RunState{
	schema.StateIdle:          {schema.StateRangeResolved, schema.StateAborted},
	schema.StateRangeResolved: {schema.StateExtracting, schema.StateAborted},
	schema.StateExtracting:    {schema.StateRowPass, schema.StateAborted},
	schema.StateRowPass:       {schema.StateDuplicatePass, schema.StateAborted},
	schema.StateDuplicatePass: {schema.StatePersisting},
	schema.StatePersisting:    {schema.StateDone},
}

// RunState tracks the lifecycle of one run.
type RunState struct {
	mu    sync.Mutex
	state schema.RunState
}

// NewRunState starts in StateIdle.
func NewRunState() *RunState {
	return &RunState{state: schema.StateIdle}
}

// Current returns the current state.
func (s *RunState) Current() schema.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves to next or returns ErrIllegalTransition.
func (s *RunState) Transition(next schema.RunState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, allowed := range transitions[s.state] {
		if allowed == next {
			s.state = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, s.state, next)
}

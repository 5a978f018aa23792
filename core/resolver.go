package core

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/schema"
	"golang.org/x/sync/singleflight"
)

// Resolver maps service dates to service keys. It is safe for concurrent use:
// concurrent lookups of one uncached period share a single store call.
type Resolver struct {
	store contract.ServicePeriodStore
	group singleflight.Group

	mu    sync.RWMutex
	cache map[schema.ServicePeriod]int64
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store contract.ServicePeriodStore) *Resolver {
	return &Resolver{store: store, cache: make(map[schema.ServicePeriod]int64)}
}

// Resolve returns the service key of the period containing date, creating it when absent.
func (r *Resolver) Resolve(ctx context.Context, date time.Time) (int64, error) {
	if date.IsZero() {
		return 0, fmt.Errorf("%w: missing service date", ErrResolution)
	}
	period := schema.PeriodOf(date)

	r.mu.RLock()
	key, ok := r.cache[period]
	r.mu.RUnlock()
	if ok {
		return key, nil
	}

	flightKey := strconv.Itoa(period.Year) + "/" + strconv.Itoa(period.Month) + "/" + strconv.Itoa(period.Ternary)
	v, err, _ := r.group.Do(flightKey, func() (any, error) {
		r.mu.RLock()
		cached, ok := r.cache[period]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}
		key, err := r.store.GetOrCreateServiceKey(ctx, period)
		if err != nil {
			return int64(0), err
		}
		r.mu.Lock()
		r.cache[period] = key
		r.mu.Unlock()
		return key, nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w for %s: %w", ErrResolution, schema.FormatFlagDate(date), err)
	}
	return v.(int64), nil
}

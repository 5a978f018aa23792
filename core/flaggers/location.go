package flaggers

import (
	"fmt"

	"github.com/ctran-hive/pipeline/schema"
)

// UnobservedStop flags events without an observed stop location.
type UnobservedStop struct{}

// Name implements core.RowRule.
func (UnobservedStop) Name() string { return "UnobservedStop" }

// Flag implements core.RowRule.
func (UnobservedStop) Flag(rec schema.Record, _ *schema.RuleConfig) ([]schema.FlagID, error) {
	if rec.LocationID == nil || *rec.LocationID <= 0 {
		return []schema.FlagID{schema.FlagUnobservedStop}, nil
	}
	return nil, nil
}

// Latitude flags GPS latitudes outside the configured service area.
type Latitude struct{}

// Name implements core.RowRule.
func (Latitude) Name() string { return "Latitude" }

// Flag implements core.RowRule.
func (Latitude) Flag(rec schema.Record, cfg *schema.RuleConfig) ([]schema.FlagID, error) {
	if cfg.MinLatitude > cfg.MaxLatitude {
		return nil, fmt.Errorf("latitude bounds inverted: min %v > max %v", cfg.MinLatitude, cfg.MaxLatitude)
	}
	return outside(rec.GPSLatitude, cfg.MinLatitude, cfg.MaxLatitude, schema.FlagLowLatitude, schema.FlagHighLatitude), nil
}

// Longitude flags GPS longitudes outside the configured service area.
type Longitude struct{}

// Name implements core.RowRule.
func (Longitude) Name() string { return "Longitude" }

// Flag implements core.RowRule.
func (Longitude) Flag(rec schema.Record, cfg *schema.RuleConfig) ([]schema.FlagID, error) {
	if cfg.MinLongitude > cfg.MaxLongitude {
		return nil, fmt.Errorf("longitude bounds inverted: min %v > max %v", cfg.MinLongitude, cfg.MaxLongitude)
	}
	return outside(rec.GPSLongitude, cfg.MinLongitude, cfg.MaxLongitude, schema.FlagLowLongitude, schema.FlagHighLongitude), nil
}

// outside returns low or high when v falls outside [lo, hi]. Missing coordinates raise nothing.
func outside(v *float64, lo, hi float64, low, high schema.FlagID) []schema.FlagID {
	switch {
	case v == nil:
		return nil
	case *v < lo:
		return []schema.FlagID{low}
	case *v > hi:
		return []schema.FlagID{high}
	default:
		return nil
	}
}

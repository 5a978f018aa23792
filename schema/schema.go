// Package schema has configs, models and constants shared by every part of the pipeline.
package schema

import "time"

// Record is one transit stop event extracted from the source store.
// Nullable source columns are pointers so that missing data stays distinguishable from zero.
type Record struct {
	RowID          int64     // Opaque row identifier assigned by the source store
	ServiceDate    time.Time // Calendar date of service
	VehicleNumber  *int64
	TrainNumber    *int64 // Trip number
	RouteNumber    *int64
	Direction      *int64
	LocationID     *int64 // Stop location
	StopTime       *int64 // Scheduled stop time, seconds after midnight
	ArriveTime     *int64 // Seconds after midnight
	LeaveTime      *int64 // Seconds after midnight
	Dwell          *int64 // Seconds spent at the stop
	Door           *int64 // Number of door openings
	Lift           *int64
	Ons            *int64
	Offs           *int64
	EstimatedLoad  *int64
	MaximumSpeed   *float64
	GPSLongitude   *float64
	GPSLatitude    *float64
	DataSource     *int64
	ScheduleStatus *int64
}

// ServicePeriod buckets a calendar date into a month and one of three ternaries.
type ServicePeriod struct {
	ServiceKey int64 `json:"service_key"`
	Month      int   `json:"month"`   // 1..12
	Year       int   `json:"year"`    // > 1700
	Ternary    int   `json:"ternary"` // 1..3
}

// FlaggedRow associates one extracted record with one flag.
type FlaggedRow struct {
	RowID      int64  `json:"row_id" csv:"row_id"`
	ServiceKey int64  `json:"service_key" csv:"service_key"`
	FlagID     FlagID `json:"flag_id" csv:"flag_id"`
	Date       string `json:"date" csv:"date"` // Rendered with FlagDateLayout
}

// DuplicateRow is one record reported by the duplicate rule.
type DuplicateRow struct {
	RowID       int64
	ServiceDate time.Time
}

// ServiceDateRow is one line of the service_periods flat file.
type ServiceDateRow struct {
	ServiceDate string `csv:"service_date"`
	Month       int    `csv:"month"`
	Year        int    `csv:"year"`
	Ternary     int    `csv:"ternary"`
}

// RuleConfig carries the thresholds shared by all flag rules.
type RuleConfig struct {
	MinLatitude     float64 `json:"min_latitude" yaml:"min_latitude"`
	MaxLatitude     float64 `json:"max_latitude" yaml:"max_latitude"`
	MinLongitude    float64 `json:"min_longitude" yaml:"min_longitude"`
	MaxLongitude    float64 `json:"max_longitude" yaml:"max_longitude"`
	MaxDwellSeconds int64   `json:"max_dwell_seconds" yaml:"max_dwell_seconds"`
	MaxSpeed        float64 `json:"max_speed" yaml:"max_speed"`
}

// DefaultRuleConfig returns thresholds covering the Portland metro service area.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		MinLatitude:     45.2,
		MaxLatitude:     45.7,
		MinLongitude:    -123.2,
		MaxLongitude:    -122.0,
		MaxDwellSeconds: 600,
		MaxSpeed:        80,
	}
}

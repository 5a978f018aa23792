package flaggers

import (
	"fmt"

	"github.com/ctran-hive/pipeline/schema"
)

// UnopenedDoor flags boardings or alightings recorded without a door opening.
type UnopenedDoor struct{}

// Name implements core.RowRule.
func (UnopenedDoor) Name() string { return "UnopenedDoor" }

// Flag implements core.RowRule.
func (UnopenedDoor) Flag(rec schema.Record, _ *schema.RuleConfig) ([]schema.FlagID, error) {
	if rec.Door != nil && *rec.Door == 0 && value(rec.Ons)+value(rec.Offs) > 0 {
		return []schema.FlagID{schema.FlagUnopenedDoor}, nil
	}
	return nil, nil
}

// AbnormalDwell flags negative dwell times and dwells over the configured maximum.
type AbnormalDwell struct{}

// Name implements core.RowRule.
func (AbnormalDwell) Name() string { return "AbnormalDwell" }

// Flag implements core.RowRule.
func (AbnormalDwell) Flag(rec schema.Record, cfg *schema.RuleConfig) ([]schema.FlagID, error) {
	if cfg.MaxDwellSeconds < 0 {
		return nil, fmt.Errorf("max dwell %d must not be negative", cfg.MaxDwellSeconds)
	}
	if rec.Dwell != nil && (*rec.Dwell < 0 || *rec.Dwell > cfg.MaxDwellSeconds) {
		return []schema.FlagID{schema.FlagAbnormalDwell}, nil
	}
	return nil, nil
}

// NegativeLoad flags negative passenger counts.
type NegativeLoad struct{}

// Name implements core.RowRule.
func (NegativeLoad) Name() string { return "NegativeLoad" }

// Flag implements core.RowRule.
func (NegativeLoad) Flag(rec schema.Record, _ *schema.RuleConfig) ([]schema.FlagID, error) {
	if value(rec.EstimatedLoad) < 0 || value(rec.Ons) < 0 || value(rec.Offs) < 0 {
		return []schema.FlagID{schema.FlagNegativeLoad}, nil
	}
	return nil, nil
}

// MissingData flags events lacking trip, vehicle or timing data.
type MissingData struct{}

// Name implements core.RowRule.
func (MissingData) Name() string { return "MissingData" }

// Flag implements core.RowRule.
func (MissingData) Flag(rec schema.Record, _ *schema.RuleConfig) ([]schema.FlagID, error) {
	if rec.TrainNumber == nil || rec.VehicleNumber == nil || rec.ArriveTime == nil || rec.LeaveTime == nil {
		return []schema.FlagID{schema.FlagMissingData}, nil
	}
	return nil, nil
}

// AbnormalSpeed flags maximum speeds above the configured limit.
type AbnormalSpeed struct{}

// Name implements core.RowRule.
func (AbnormalSpeed) Name() string { return "AbnormalSpeed" }

// Flag implements core.RowRule.
func (AbnormalSpeed) Flag(rec schema.Record, cfg *schema.RuleConfig) ([]schema.FlagID, error) {
	if cfg.MaxSpeed <= 0 {
		return nil, fmt.Errorf("max speed %v must be positive", cfg.MaxSpeed)
	}
	if rec.MaximumSpeed != nil && *rec.MaximumSpeed > cfg.MaxSpeed {
		return []schema.FlagID{schema.FlagAbnormalSpeed}, nil
	}
	return nil, nil
}

// LeaveBeforeArrive flags events that leave a stop before arriving at it.
type LeaveBeforeArrive struct{}

// Name implements core.RowRule.
func (LeaveBeforeArrive) Name() string { return "LeaveBeforeArrive" }

// Flag implements core.RowRule.
func (LeaveBeforeArrive) Flag(rec schema.Record, _ *schema.RuleConfig) ([]schema.FlagID, error) {
	if rec.ArriveTime != nil && rec.LeaveTime != nil && *rec.LeaveTime < *rec.ArriveTime {
		return []schema.FlagID{schema.FlagLeaveBeforeArrive}, nil
	}
	return nil, nil
}

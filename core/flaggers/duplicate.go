package flaggers

import (
	"fmt"
	"time"

	"github.com/ctran-hive/pipeline/core"
	"github.com/ctran-hive/pipeline/schema"
)

// Duplicate flags stop events repeating an earlier event of the same vehicle,
// trip and stop with identical arrive and leave times on the same service day.
// The first occurrence in batch order is kept; later ones are reported.
type Duplicate struct{}

// Name implements core.BatchRule.
func (Duplicate) Name() string { return schema.DuplicateRuleName }

// eventKey identifies one stop event. Nil fields compare as absent.
type eventKey struct {
	date     time.Time
	vehicle  nullable
	train    nullable
	location nullable
	arrive   nullable
	leave    nullable
}

type nullable struct {
	v     int64
	valid bool
}

func of(p *int64) nullable {
	if p == nil {
		return nullable{}
	}
	return nullable{v: *p, valid: true}
}

// Flag implements core.BatchRule.
func (Duplicate) Flag(batch []schema.Record, _ *schema.RuleConfig) ([]schema.DuplicateRow, error) {
	seenRows := make(map[int64]struct{}, len(batch))
	seenEvents := make(map[eventKey]struct{}, len(batch))
	var dups []schema.DuplicateRow

	for _, rec := range batch {
		if rec.ServiceDate.IsZero() {
			return nil, fmt.Errorf("%w: row %d has no service date", core.ErrInvalidBatch, rec.RowID)
		}
		if _, ok := seenRows[rec.RowID]; ok {
			return nil, fmt.Errorf("%w: row id %d appears twice", core.ErrInvalidBatch, rec.RowID)
		}
		seenRows[rec.RowID] = struct{}{}

		key := eventKey{
			date:     schema.Day(rec.ServiceDate),
			vehicle:  of(rec.VehicleNumber),
			train:    of(rec.TrainNumber),
			location: of(rec.LocationID),
			arrive:   of(rec.ArriveTime),
			leave:    of(rec.LeaveTime),
		}
		if _, ok := seenEvents[key]; ok {
			dups = append(dups, schema.DuplicateRow{RowID: rec.RowID, ServiceDate: rec.ServiceDate})
			continue
		}
		seenEvents[key] = struct{}{}
	}
	return dups, nil
}

package schema

import (
	"fmt"
	"slices"
	"strings"
)

// FlagID identifies a flag. Values are fixed in code and never assigned by storage.
// Persisted rows reference them, so an id is never reused or renumbered.
type FlagID int

// All flags known to the pipeline.
const (
	FlagDuplicate         FlagID = 1
	FlagUnobservedStop    FlagID = 2
	FlagUnopenedDoor      FlagID = 3
	FlagLowLatitude       FlagID = 4
	FlagHighLatitude      FlagID = 5
	FlagLowLongitude      FlagID = 6
	FlagHighLongitude     FlagID = 7
	FlagAbnormalDwell     FlagID = 8
	FlagNegativeLoad      FlagID = 9
	FlagMissingData       FlagID = 10
	FlagAbnormalSpeed     FlagID = 11
	FlagLeaveBeforeArrive FlagID = 12
)

// Flag is one row of the flags reference table.
type Flag struct {
	FlagID      FlagID `json:"flag_id" csv:"flag_id"`
	Description string `json:"description" csv:"description"`
	Name        string `json:"name" csv:"name"`
}

// FlagDescriptions is the static description table for every FlagID.
var FlagDescriptions = map[FlagID]Flag{
	FlagDuplicate:         {FlagDuplicate, "Row duplicates an earlier stop event of the same vehicle, trip and stop.", "DUPLICATE"},
	FlagUnobservedStop:    {FlagUnobservedStop, "Stop event has no observed stop location.", "UNOBSERVED_STOP"},
	FlagUnopenedDoor:      {FlagUnopenedDoor, "Passengers boarded or alighted without a door opening.", "UNOPENED_DOOR"},
	FlagLowLatitude:       {FlagLowLatitude, "GPS latitude is below the service area.", "LOW_LATITUDE"},
	FlagHighLatitude:      {FlagHighLatitude, "GPS latitude is above the service area.", "HIGH_LATITUDE"},
	FlagLowLongitude:      {FlagLowLongitude, "GPS longitude is west of the service area.", "LOW_LONGITUDE"},
	FlagHighLongitude:     {FlagHighLongitude, "GPS longitude is east of the service area.", "HIGH_LONGITUDE"},
	FlagAbnormalDwell:     {FlagAbnormalDwell, "Dwell time is negative or longer than allowed.", "ABNORMAL_DWELL"},
	FlagNegativeLoad:      {FlagNegativeLoad, "Estimated load, ons or offs is negative.", "NEGATIVE_LOAD"},
	FlagMissingData:       {FlagMissingData, "Trip, vehicle or arrive/leave time is missing.", "MISSING_DATA"},
	FlagAbnormalSpeed:     {FlagAbnormalSpeed, "Maximum speed exceeds the configured limit.", "ABNORMAL_SPEED"},
	FlagLeaveBeforeArrive: {FlagLeaveBeforeArrive, "Leave time is earlier than arrive time.", "LEAVE_BEFORE_ARRIVE"},
}

// AllFlags returns every flag ordered by id.
func AllFlags() []Flag {
	flags := make([]Flag, 0, len(FlagDescriptions))
	for _, f := range FlagDescriptions {
		flags = append(flags, f)
	}
	slices.SortFunc(flags, func(a, b Flag) int { return int(a.FlagID) - int(b.FlagID) })
	return flags
}

// Name returns the upper-case flag name.
func (id FlagID) Name() string {
	if f, ok := FlagDescriptions[id]; ok {
		return f.Name
	}
	return fmt.Sprintf("FLAG_%d", int(id))
}

// String implements fmt.Stringer.
func (id FlagID) String() string {
	return id.Name()
}

// Valid reports whether the id is part of the enumeration.
func (id FlagID) Valid() bool {
	_, ok := FlagDescriptions[id]
	return ok
}

// ViewName returns the SQL view name exposing rows carrying this flag.
func (id FlagID) ViewName() string {
	return "flagged_" + strings.ToLower(id.Name())
}

package schema

import "time"

// HiveStatus represents the status of the hive store.
type HiveStatus struct {
	Backend          string           `json:"backend" yaml:"backend"`
	Connected        bool             `json:"connected" yaml:"connected"`
	SchemaName       string           `json:"schema_name,omitempty" yaml:"schema_name,omitempty"`
	HasCheckpoint    bool             `json:"has_checkpoint" yaml:"has_checkpoint"`
	LatestServiceDay time.Time        `json:"latest_service_day" yaml:"latest_service_day"`
	TotalFlagged     int64            `json:"total_flagged" yaml:"total_flagged"`
	TableSizes       map[string]int64 `json:"table_sizes" yaml:"table_sizes"`
}

// FlaggedRecord represents a row from the flagged_data table.
type FlaggedRecord struct {
	RowID       int64
	ServiceKey  int64
	FlagID      FlagID
	ServiceDate time.Time
}

// RunState is a stage of the run lifecycle.
type RunState string

// All run states, in lifecycle order.
const (
	StateIdle          RunState = "idle"
	StateRangeResolved RunState = "range_resolved"
	StateExtracting    RunState = "extracting"
	StateRowPass       RunState = "row_pass"
	StateDuplicatePass RunState = "duplicate_pass"
	StatePersisting    RunState = "persisting"
	StateDone          RunState = "done"
	StateAborted       RunState = "aborted"
)

// RunReport summarizes a single pipeline run.
type RunReport struct {
	RunID            string        `json:"run_id"`
	Start            time.Time     `json:"start"`
	End              time.Time     `json:"end"`
	State            RunState      `json:"state"`
	Records          int           `json:"records"`
	FlaggedRows      int           `json:"flagged_rows"`
	DuplicateRows    int           `json:"duplicate_rows"`
	Skipped          int64         `json:"skipped"`
	RuleFailures     int64         `json:"rule_failures"`
	DuplicateChecked bool          `json:"duplicate_checked"`
	Sinks            []string      `json:"sinks"`
	Duration         time.Duration `json:"duration"`
	Message          string        `json:"message,omitempty"`
}

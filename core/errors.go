package core

import "errors"

// Sentinel errors returned by the pipeline. Callers inspect them with errors.Is.
var (
	// ErrExtractionUnavailable means the source returned nothing for the range or could not be read.
	ErrExtractionUnavailable = errors.New("no data available for the requested range")

	// ErrResolution means a service date could not be mapped to a service key.
	ErrResolution = errors.New("service period resolution failed")

	// ErrRuleEvaluation means a single rule failed on a single record.
	ErrRuleEvaluation = errors.New("rule evaluation failed")

	// ErrInvalidBatch means the duplicate rule rejected the extract.
	ErrInvalidBatch = errors.New("invalid batch for duplicate detection")

	// ErrCheckpointUnavailable means the hive holds no processed day yet.
	ErrCheckpointUnavailable = errors.New("no checkpoint available")

	// ErrSkipBudgetExceeded means more records were skipped than the configured maximum.
	ErrSkipBudgetExceeded = errors.New("skip budget exceeded")

	// ErrRangeDelete means previously flagged rows could not be removed.
	ErrRangeDelete = errors.New("failed to delete flagged range")

	// ErrNothingToProcess means the computed range lies in the future.
	ErrNothingToProcess = errors.New("nothing to process")

	// ErrIllegalTransition means the run state machine was driven out of order.
	ErrIllegalTransition = errors.New("illegal run state transition")
)

// FatalError marks a condition that must terminate the process so a supervisor can restart it.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err as a FatalError.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err or anything it wraps is a FatalError.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

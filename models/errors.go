package models

import (
	"errors"
	"fmt"
)

// ErrUnsortedSeries signals a reconciler precondition violation: input series
// must already be timestamp-sorted by the retriever.
var ErrUnsortedSeries = errors.New("input series is not sorted by timestamp")

// ErrNotSupported is returned by venue capabilities that are declared but not
// implemented, such as order placement.
var ErrNotSupported = errors.New("capability not supported by this venue")

// InvalidParameterError reports a malformed input (inverted time window,
// non-positive multiplier, unknown venue) detected before any network activity.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Param, e.Reason)
}

// RetryBudgetExhaustedError is returned together with the partial series when
// retrieval halts after too many consecutive transport failures. It is a
// recoverable condition: the accumulated series is still usable, just flagged
// incomplete.
type RetryBudgetExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *RetryBudgetExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d consecutive failures: %v", e.Attempts, e.LastErr)
}

func (e *RetryBudgetExhaustedError) Unwrap() error {
	return e.LastErr
}

// IsRetryBudgetExhausted reports whether err carries an exhausted retry budget.
func IsRetryBudgetExhausted(err error) bool {
	var rbe *RetryBudgetExhaustedError
	return errors.As(err, &rbe)
}

// IsInvalidParameter reports whether err is a fail-fast parameter validation error.
func IsInvalidParameter(err error) bool {
	var ipe *InvalidParameterError
	return errors.As(err, &ipe)
}

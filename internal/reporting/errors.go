package reporting

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPeriod covers start > end and malformed dates.
	ErrInvalidPeriod = errors.New("reporting: invalid period")
	// ErrUnknownComparisonMode is returned for comparison modes a report does not support.
	ErrUnknownComparisonMode = errors.New("reporting: unknown comparison mode")
	// ErrUnknownCashFlowMethod is returned for methods other than direct/indirect.
	ErrUnknownCashFlowMethod = errors.New("reporting: unknown cash flow method")
	// ErrUnknownTrendMetric is returned for unsupported trend metrics.
	ErrUnknownTrendMetric = errors.New("reporting: unknown trend metric")
	// ErrInvalidTrendWindow is returned when the window is outside 1..max.
	ErrInvalidTrendWindow = errors.New("reporting: invalid trend window")
	// ErrBuildCanceled wraps the context error when a build is cancelled or times out.
	ErrBuildCanceled = errors.New("reporting: build cancelled")
)

// LedgerSourceError wraps a failure from the ledger source (connection, timeout, query error).
type LedgerSourceError struct {
	Op  string
	Err error
}

func (e *LedgerSourceError) Error() string {
	return fmt.Sprintf("reporting: ledger source %s: %v", e.Op, e.Err)
}

func (e *LedgerSourceError) Unwrap() error { return e.Err }

// AggregationError reports a violated arithmetic invariant. It always indicates a bug.
type AggregationError struct {
	Report  string
	Section string
	Detail  string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("reporting: %s/%s invariant violated: %s", e.Report, e.Section, e.Detail)
}

func sourceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &LedgerSourceError{Op: op, Err: err}
}

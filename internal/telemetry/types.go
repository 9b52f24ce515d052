// Package telemetry implements chunked retrieval of time-range telemetry
// from a remote store and the reshaping of long-format points into a
// fixed-frequency wide table.
package telemetry

import "time"

// TimeRange is a half-open [Start, End) interval. Both endpoints are UTC.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange normalizes both endpoints to UTC and validates the range.
// No I/O happens before this check anywhere in the engine.
func NewTimeRange(start, end time.Time) (TimeRange, error) {
	start = start.UTC()
	end = end.UTC()
	if !end.After(start) {
		return TimeRange{}, &InvalidRangeError{Start: start, End: end}
	}
	return TimeRange{Start: start, End: end}, nil
}

// Duration returns the length of the range
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// QueryWindow is a bounded sub-range of a TimeRange, sized to stay under
// store limits. Consecutive windows are contiguous and non-overlapping.
type QueryWindow struct {
	Start time.Time
	End   time.Time
}

// Point is one long-format telemetry row as returned by the store
type Point struct {
	Time   time.Time
	Signal string
	Value  float64
}

// ActivityBin is a per-bucket row count from an availability query
type ActivityBin struct {
	Start time.Time
	Rows  int64
}

// ProgressFunc receives advisory (completed, total) window notifications.
// Implementations must never influence control flow.
type ProgressFunc func(completed, total int)

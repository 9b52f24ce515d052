package telemetry

import (
	"fmt"
	"time"
)

// SplitRange splits r into ordered, contiguous, non-overlapping windows of
// at most chunk duration. The union of the windows reconstructs r exactly;
// the last window may be shorter than chunk. Pure function, no I/O.
func SplitRange(r TimeRange, chunk time.Duration) ([]QueryWindow, error) {
	if !r.End.After(r.Start) {
		return nil, &InvalidRangeError{Start: r.Start, End: r.End}
	}
	if chunk <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %s", chunk)
	}

	var windows []QueryWindow
	for cur := r.Start; cur.Before(r.End); {
		next := cur.Add(chunk)
		if next.After(r.End) {
			next = r.End
		}
		windows = append(windows, QueryWindow{Start: cur, End: next})
		cur = next
	}
	return windows, nil
}

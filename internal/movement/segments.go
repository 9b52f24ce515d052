package movement

import (
	"math"
	"time"

	"github.com/wfr-racing/slicks/internal/telemetry"
)

// Segment is a maximal contiguous run of one movement state
type Segment struct {
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Duration  time.Duration `json:"duration"`
	State     State         `json:"state"`
	MeanSpeed float64       `json:"meanSpeed"`
	RowCount  int           `json:"rowCount"`
}

// BuildSegments collapses the frame's per-row movement state into ordered,
// non-overlapping segments that collectively cover every row.
//
// A boundary opens in exactly two cases: the state changes between
// consecutive rows, or two same-state rows are separated by a wall-clock
// gap exceeding maxGap (a long sampling hole, e.g. the car powered off
// between test sessions). A maxGap of zero or less disables gap splitting.
func BuildSegments(frame *telemetry.WideFrame, speedColumn string, threshold float64, maxGap time.Duration) []Segment {
	n := frame.Len()
	if n == 0 {
		return nil
	}

	moving := Classify(frame, speedColumn, threshold)
	times := frame.Times()
	speeds, _ := frame.Column(speedColumn)

	var segments []Segment
	segStart := 0
	for i := 1; i <= n; i++ {
		boundary := i == n ||
			moving[i] != moving[i-1] ||
			(maxGap > 0 && times[i].Sub(times[i-1]) > maxGap)
		if boundary {
			segments = append(segments, newSegment(times, speeds, moving[segStart], segStart, i))
			if i < n {
				segStart = i
			}
		}
	}
	return segments
}

// newSegment builds the segment covering rows [lo, hi)
func newSegment(times []time.Time, speeds []float64, moving bool, lo, hi int) Segment {
	var sum float64
	var count int
	if speeds != nil {
		for i := lo; i < hi; i++ {
			if !math.IsNaN(speeds[i]) {
				sum += speeds[i]
				count++
			}
		}
	}
	mean := 0.0
	if count > 0 {
		mean = sum / float64(count)
	}

	state := StateIdle
	if moving {
		state = StateMoving
	}
	return Segment{
		Start:     times[lo],
		End:       times[hi-1],
		Duration:  times[hi-1].Sub(times[lo]),
		State:     state,
		MeanSpeed: mean,
		RowCount:  hi - lo,
	}
}

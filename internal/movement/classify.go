// Package movement derives moving/idle state and contiguous operating
// segments from a speed-like signal in a wide telemetry frame.
package movement

import (
	"log/slog"

	"github.com/wfr-racing/slicks/internal/telemetry"
)

// State labels one side of the moving/idle classification
type State string

const (
	StateMoving State = "Moving"
	StateIdle   State = "Idle"
)

// Classify thresholds the speed column into a per-row moving flag aligned
// with the frame's rows. The comparison is a strict greater-than: a value
// equal to the threshold is idle. Rows with a missing speed value are idle.
// An absent column yields all-idle with an advisory warning, so callers
// opting out of movement filtering still get a usable result.
func Classify(frame *telemetry.WideFrame, speedColumn string, threshold float64) []bool {
	moving := make([]bool, frame.Len())
	_, ok := frame.Column(speedColumn)
	if !ok {
		if frame.Len() > 0 {
			slog.Warn("speed column absent, classifying all rows as idle",
				"column", speedColumn)
		}
		return moving
	}
	for i := range moving {
		if v, present := frame.Value(i, speedColumn); present && v > threshold {
			moving[i] = true
		}
	}
	return moving
}

// Ratio summarizes the moving/idle split of a frame
type Ratio struct {
	TotalRows     int     `json:"totalRows"`
	MovingRows    int     `json:"movingRows"`
	IdleRows      int     `json:"idleRows"`
	MovementRatio float64 `json:"movementRatio"`
}

// MovementRatio computes the fraction of rows classified as moving.
// An empty frame yields a ratio of 0.0, never a division fault.
func MovementRatio(frame *telemetry.WideFrame, speedColumn string, threshold float64) Ratio {
	moving := Classify(frame, speedColumn, threshold)

	r := Ratio{TotalRows: len(moving)}
	for _, m := range moving {
		if m {
			r.MovingRows++
		}
	}
	r.IdleRows = r.TotalRows - r.MovingRows
	if r.TotalRows > 0 {
		r.MovementRatio = float64(r.MovingRows) / float64(r.TotalRows)
	}
	return r
}

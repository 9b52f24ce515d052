package movement

import (
	"testing"
	"time"

	"github.com/wfr-racing/slicks/internal/telemetry"
)

const speedCol = "INV_Motor_Speed"

var classifyBase = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func speedFrame(spacing time.Duration, speeds ...float64) *telemetry.WideFrame {
	points := make([]telemetry.Point, len(speeds))
	for i, v := range speeds {
		points[i] = telemetry.Point{
			Time:   classifyBase.Add(time.Duration(i) * spacing),
			Signal: speedCol,
			Value:  v,
		}
	}
	return telemetry.Pivot(points)
}

func TestClassify_StrictThreshold(t *testing.T) {
	frame := speedFrame(time.Second, 99.9, 100.0, 100.1)
	moving := Classify(frame, speedCol, 100.0)

	want := []bool{false, false, true}
	for i, m := range moving {
		if m != want[i] {
			t.Errorf("row %d moving=%v, want %v", i, m, want[i])
		}
	}
}

func TestClassify_MissingValueIsIdle(t *testing.T) {
	// SOC rows have no speed reading at all timestamps
	points := []telemetry.Point{
		{Time: classifyBase, Signal: speedCol, Value: 150},
		{Time: classifyBase.Add(time.Second), Signal: "SOC", Value: 88},
	}
	frame := telemetry.Pivot(points)

	moving := Classify(frame, speedCol, 100)
	if !moving[0] {
		t.Error("row 0 should be moving")
	}
	if moving[1] {
		t.Error("row with missing speed should be idle")
	}
}

func TestClassify_AbsentColumnAllIdle(t *testing.T) {
	points := []telemetry.Point{
		{Time: classifyBase, Signal: "SOC", Value: 88},
		{Time: classifyBase.Add(time.Second), Signal: "SOC", Value: 87},
	}
	frame := telemetry.Pivot(points)

	moving := Classify(frame, speedCol, 100)
	if len(moving) != frame.Len() {
		t.Fatalf("flag length %d, want %d", len(moving), frame.Len())
	}
	for i, m := range moving {
		if m {
			t.Errorf("row %d moving without a speed column", i)
		}
	}
}

func TestMovementRatio(t *testing.T) {
	tests := []struct {
		name   string
		speeds []float64
		want   float64
	}{
		{"all idle", []float64{10, 20, 30}, 0.0},
		{"all moving", []float64{110, 120, 130}, 1.0},
		{"half moving", []float64{10, 110, 20, 120}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MovementRatio(speedFrame(time.Second, tt.speeds...), speedCol, 100)
			if r.MovementRatio != tt.want {
				t.Errorf("ratio = %v, want %v", r.MovementRatio, tt.want)
			}
			if r.MovingRows+r.IdleRows != r.TotalRows {
				t.Errorf("moving %d + idle %d != total %d", r.MovingRows, r.IdleRows, r.TotalRows)
			}
		})
	}
}

func TestMovementRatio_EmptyFrame(t *testing.T) {
	r := MovementRatio(telemetry.Pivot(nil), speedCol, 100)
	if r.MovementRatio != 0.0 {
		t.Errorf("empty frame ratio = %v, want 0.0", r.MovementRatio)
	}
	if r.TotalRows != 0 {
		t.Errorf("empty frame total = %d, want 0", r.TotalRows)
	}
}

package availability

import (
	"testing"
	"time"

	"github.com/wfr-racing/slicks/internal/telemetry"
)

var compressBase = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func bin(offsetHours int, rows int64) telemetry.ActivityBin {
	return telemetry.ActivityBin{Start: compressBase.Add(time.Duration(offsetHours) * time.Hour), Rows: rows}
}

func TestCompressBins_MergesAdjacent(t *testing.T) {
	bins := []telemetry.ActivityBin{bin(0, 100), bin(1, 200), bin(2, 50)}

	windows := compressBins(bins, time.Hour)
	if len(windows) != 1 {
		t.Fatalf("expected 1 window, got %d", len(windows))
	}
	w := windows[0]
	if !w.StartUTC.Equal(compressBase) {
		t.Errorf("start = %v, want %v", w.StartUTC, compressBase)
	}
	if !w.EndUTC.Equal(compressBase.Add(3 * time.Hour)) {
		t.Errorf("end = %v, want %v", w.EndUTC, compressBase.Add(3*time.Hour))
	}
	if w.Bins != 3 {
		t.Errorf("bins = %d, want 3", w.Bins)
	}
	if w.Rows != 350 {
		t.Errorf("rows = %d, want 350", w.Rows)
	}
}

func TestCompressBins_GapSplits(t *testing.T) {
	// Hour 2 has no data
	bins := []telemetry.ActivityBin{bin(0, 100), bin(1, 200), bin(3, 50)}

	windows := compressBins(bins, time.Hour)
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[0].Bins != 2 || windows[1].Bins != 1 {
		t.Errorf("bin counts = %d and %d, want 2 and 1", windows[0].Bins, windows[1].Bins)
	}
}

func TestCompressBins_UnsortedInput(t *testing.T) {
	bins := []telemetry.ActivityBin{bin(1, 200), bin(0, 100)}

	windows := compressBins(bins, time.Hour)
	if len(windows) != 1 {
		t.Fatalf("expected 1 window from out-of-order bins, got %d", len(windows))
	}
	if windows[0].Rows != 300 {
		t.Errorf("rows = %d, want 300", windows[0].Rows)
	}
}

func TestCompressBins_Empty(t *testing.T) {
	if got := compressBins(nil, time.Hour); len(got) != 0 {
		t.Errorf("expected no windows, got %v", got)
	}
}

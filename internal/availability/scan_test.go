package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wfr-racing/slicks/internal/telemetry"
)

type fakeStore struct {
	activityBins func(start, end time.Time, bin time.Duration) ([]telemetry.ActivityBin, error)
	hasData      func(start, end time.Time) (bool, error)
	binCalls     int
	probeCalls   int
}

func (s *fakeStore) QueryPoints(ctx context.Context, start, end time.Time, signals []string) ([]telemetry.Point, error) {
	return nil, nil
}

func (s *fakeStore) QueryDistinctSignals(ctx context.Context, start, end time.Time) ([]string, error) {
	return nil, nil
}

func (s *fakeStore) QueryActivityBins(ctx context.Context, start, end time.Time, bin time.Duration) ([]telemetry.ActivityBin, error) {
	s.binCalls++
	return s.activityBins(start, end, bin)
}

func (s *fakeStore) HasData(ctx context.Context, start, end time.Time) (bool, error) {
	s.probeCalls++
	if s.hasData == nil {
		return false, nil
	}
	return s.hasData(start, end)
}

func scanTestRange(t *testing.T, start time.Time, d time.Duration) telemetry.TimeRange {
	t.Helper()
	r, err := telemetry.NewTimeRange(start, start.Add(d))
	if err != nil {
		t.Fatalf("unexpected range error: %v", err)
	}
	return r
}

func TestScan_GroupsWindowsByLocalDay(t *testing.T) {
	// Two activity runs: late evening UTC on June 1 and morning June 2.
	// In UTC+3 the evening run lands on June 2 already.
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		activityBins: func(ws, we time.Time, _ time.Duration) ([]telemetry.ActivityBin, error) {
			all := []telemetry.ActivityBin{
				{Start: start.Add(22 * time.Hour), Rows: 100},
				{Start: start.Add(23 * time.Hour), Rows: 150},
				{Start: start.Add(33 * time.Hour), Rows: 80},
			}
			var out []telemetry.ActivityBin
			for _, b := range all {
				if !b.Start.Before(ws) && b.Start.Before(we) {
					out = append(out, b)
				}
			}
			return out, nil
		},
	}

	loc := time.FixedZone("UTC+3", 3*60*60)
	scanner := NewScanner(store, nil)
	result, err := scanner.Scan(context.Background(), scanTestRange(t, start, 48*time.Hour), Options{
		Bin:      time.Hour,
		Location: loc,
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	days := result.Days()
	if len(days) != 1 || days[0] != "2025-06-02" {
		t.Fatalf("days = %v, want [2025-06-02]", days)
	}

	windows := result.Windows("2025-06-02")
	if len(windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(windows))
	}
	if windows[0].Bins != 2 || windows[0].Rows != 250 {
		t.Errorf("first window bins=%d rows=%d, want 2 and 250", windows[0].Bins, windows[0].Rows)
	}
	if windows[0].StartLocal.Hour() != 1 {
		t.Errorf("first window starts at local hour %d, want 1", windows[0].StartLocal.Hour())
	}
	if result.TotalRows() != 330 {
		t.Errorf("total rows = %d, want 330", result.TotalRows())
	}
}

func TestScan_SplitsOnTransientFailure(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		activityBins: func(ws, we time.Time, _ time.Duration) ([]telemetry.ActivityBin, error) {
			// The full-day query trips a resource limit; halves succeed
			if we.Sub(ws) >= 24*time.Hour {
				return nil, errors.New("query would exceed memory limit")
			}
			return []telemetry.ActivityBin{{Start: ws, Rows: 10}}, nil
		},
	}

	scanner := NewScanner(store, nil)
	result, err := scanner.Scan(context.Background(), scanTestRange(t, start, 24*time.Hour), Options{
		Bin: time.Hour,
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	// One failed full query plus two half queries
	if store.binCalls != 3 {
		t.Errorf("activity queries = %d, want 3", store.binCalls)
	}
	if result.TotalRows() != 20 {
		t.Errorf("total rows = %d, want 20", result.TotalRows())
	}
}

func TestScan_FatalAborts(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		activityBins: func(_, _ time.Time, _ time.Duration) ([]telemetry.ActivityBin, error) {
			return nil, errors.New("database not found")
		},
	}

	scanner := NewScanner(store, nil)
	_, err := scanner.Scan(context.Background(), scanTestRange(t, start, 24*time.Hour), Options{
		Bin: time.Hour,
	})
	var fatal *telemetry.FatalQueryError
	if !errors.As(err, &fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if store.binCalls != 1 {
		t.Errorf("activity queries = %d, want 1 (no split on fatal)", store.binCalls)
	}
}

func TestScan_FallsBackToExistenceProbes(t *testing.T) {
	// A span of four bins or less skips the grouped query entirely
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		hasData: func(ws, _ time.Time) (bool, error) {
			return ws.Equal(start), nil
		},
	}

	scanner := NewScanner(store, nil)
	result, err := scanner.Scan(context.Background(), scanTestRange(t, start, 3*time.Hour), Options{
		Bin: time.Hour,
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if store.binCalls != 0 {
		t.Errorf("activity queries = %d, want 0", store.binCalls)
	}
	if store.probeCalls != 3 {
		t.Errorf("probes = %d, want 3", store.probeCalls)
	}
	if result.Len() != 1 {
		t.Errorf("windows = %d, want 1", result.Len())
	}
}

func TestScan_EmptyRangeYieldsEmptyResult(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		activityBins: func(_, _ time.Time, _ time.Duration) ([]telemetry.ActivityBin, error) {
			return nil, nil
		},
	}

	scanner := NewScanner(store, nil)
	result, err := scanner.Scan(context.Background(), scanTestRange(t, start, 24*time.Hour), Options{
		Bin: time.Hour,
	})
	if err != nil {
		t.Fatalf("expected empty result, not error: %v", err)
	}
	if result.Len() != 0 {
		t.Errorf("expected no windows, got %d", result.Len())
	}
}

func TestScan_ProgressPerChunk(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		activityBins: func(_, _ time.Time, _ time.Duration) ([]telemetry.ActivityBin, error) {
			return nil, nil
		},
	}

	scanner := NewScanner(store, nil)
	var calls []int
	scanner.SetProgress(func(done, total int) {
		if total != 2 {
			t.Errorf("total = %d, want 2", total)
		}
		calls = append(calls, done)
	})

	_, err := scanner.Scan(context.Background(), scanTestRange(t, start, 48*time.Hour), Options{
		Bin:       time.Hour,
		ChunkDays: 1,
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("progress calls = %v, want [1 2]", calls)
	}
}

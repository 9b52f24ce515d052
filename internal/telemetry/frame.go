package telemetry

import (
	"math"
	"sort"
	"time"
)

// WideFrame is a table keyed by unique, time-ordered timestamps with one
// column per signal. Missing cells are NaN; they surface as missing through
// Value, never as a fabricated zero.
type WideFrame struct {
	times   []time.Time
	columns map[string][]float64
}

// Pivot reshapes long-format points into a WideFrame. When multiple points
// share exactly (timestamp, signal), as happens when a retried window
// re-fetches an overlapping boundary row, the later-arriving point wins.
// That makes pivoting idempotent under retry duplication.
func Pivot(points []Point) *WideFrame {
	cells := make(map[int64]map[string]float64)
	signals := make(map[string]struct{})

	for _, p := range points {
		ts := p.Time.UTC().UnixNano()
		row := cells[ts]
		if row == nil {
			row = make(map[string]float64)
			cells[ts] = row
		}
		row[p.Signal] = p.Value
		signals[p.Signal] = struct{}{}
	}

	keys := make([]int64, 0, len(cells))
	for ts := range cells {
		keys = append(keys, ts)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	frame := &WideFrame{
		times:   make([]time.Time, len(keys)),
		columns: make(map[string][]float64, len(signals)),
	}
	for i, ts := range keys {
		frame.times[i] = time.Unix(0, ts).UTC()
	}
	for name := range signals {
		col := make([]float64, len(keys))
		for i, ts := range keys {
			if v, ok := cells[ts][name]; ok {
				col[i] = v
			} else {
				col[i] = math.NaN()
			}
		}
		frame.columns[name] = col
	}
	return frame
}

// Len returns the number of rows
func (f *WideFrame) Len() int {
	return len(f.times)
}

// IsEmpty reports whether the frame has no rows
func (f *WideFrame) IsEmpty() bool {
	return len(f.times) == 0
}

// Times returns the row timestamps in ascending order
func (f *WideFrame) Times() []time.Time {
	return f.times
}

// Signals returns the column names sorted alphabetically
func (f *WideFrame) Signals() []string {
	names := make([]string, 0, len(f.columns))
	for name := range f.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Column returns the values for a signal, NaN marking missing cells.
// The second return is false when the column does not exist at all.
func (f *WideFrame) Column(name string) ([]float64, bool) {
	col, ok := f.columns[name]
	return col, ok
}

// Value returns the cell at row i for a signal. The second return is false
// when the column is absent or the cell is missing.
func (f *WideFrame) Value(i int, name string) (float64, bool) {
	col, ok := f.columns[name]
	if !ok || i < 0 || i >= len(col) {
		return 0, false
	}
	v := col[i]
	if math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Resample buckets rows onto a regular grid of the given frequency,
// aggregating each column by the arithmetic mean of its present values in
// the bucket. A bucket with no contributing rows for a column stays
// missing. A freq of zero (or less) returns the frame unchanged.
func (f *WideFrame) Resample(freq time.Duration) *WideFrame {
	if freq <= 0 || f.Len() == 0 {
		return f
	}

	first := f.times[0].Truncate(freq)
	last := f.times[len(f.times)-1].Truncate(freq)
	n := int(last.Sub(first)/freq) + 1

	sums := make(map[string][]float64, len(f.columns))
	counts := make(map[string][]int, len(f.columns))
	for name := range f.columns {
		sums[name] = make([]float64, n)
		counts[name] = make([]int, n)
	}

	for i, t := range f.times {
		bucket := int(t.Truncate(freq).Sub(first) / freq)
		for name, col := range f.columns {
			v := col[i]
			if math.IsNaN(v) {
				continue
			}
			sums[name][bucket] += v
			counts[name][bucket]++
		}
	}

	out := &WideFrame{
		times:   make([]time.Time, n),
		columns: make(map[string][]float64, len(f.columns)),
	}
	for b := 0; b < n; b++ {
		out.times[b] = first.Add(time.Duration(b) * freq)
	}
	for name := range f.columns {
		col := make([]float64, n)
		for b := 0; b < n; b++ {
			if counts[name][b] > 0 {
				col[b] = sums[name][b] / float64(counts[name][b])
			} else {
				col[b] = math.NaN()
			}
		}
		out.columns[name] = col
	}
	return out
}

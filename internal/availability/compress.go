package availability

import (
	"sort"
	"time"

	"github.com/wfr-racing/slicks/internal/telemetry"
)

// compressBins merges consecutive activity buckets into contiguous windows.
// Buckets are consecutive when one starts exactly where the previous ends.
func compressBins(bins []telemetry.ActivityBin, step time.Duration) []Window {
	sorted := append([]telemetry.ActivityBin(nil), bins...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var windows []Window
	var cur *Window
	for _, bin := range sorted {
		if cur != nil && bin.Start.Equal(cur.EndUTC) {
			cur.EndUTC = cur.EndUTC.Add(step)
			cur.Bins++
			cur.Rows += bin.Rows
			continue
		}
		if cur != nil {
			windows = append(windows, *cur)
		}
		cur = &Window{
			StartUTC: bin.Start,
			EndUTC:   bin.Start.Add(step),
			Bins:     1,
			Rows:     bin.Rows,
		}
	}
	if cur != nil {
		windows = append(windows, *cur)
	}
	return windows
}

// Package availability scans the store for contiguous windows of recorded
// telemetry, so engineers can browse which time ranges hold data before
// committing to a bulk fetch.
package availability

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wfr-racing/slicks/internal/telemetry"
)

const defaultMaxDepth = 10

// Options tunes an availability scan
type Options struct {
	// Bin is the scan granularity; an hour by default
	Bin time.Duration
	// Location is the display timezone used for day grouping; UTC by default
	Location *time.Location
	// ChunkDays is the outer chunk size in days; 31 by default
	ChunkDays int
	// MaxDepth bounds the adaptive split recursion; 10 by default
	MaxDepth int
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.Bin <= 0 {
		out.Bin = time.Hour
	}
	if out.Location == nil {
		out.Location = time.UTC
	}
	if out.ChunkDays <= 0 {
		out.ChunkDays = 31
	}
	if out.MaxDepth <= 0 {
		out.MaxDepth = defaultMaxDepth
	}
	return out
}

// Scanner discovers data-availability windows with adaptive chunking: a
// chunk whose grouped-bin query trips a transient store limit is split in
// half and retried recursively, bottoming out in cheap per-bin existence
// probes.
type Scanner struct {
	store      telemetry.Store
	onProgress telemetry.ProgressFunc
	logger     *slog.Logger
}

// NewScanner creates an availability scanner over the given store
func NewScanner(store telemetry.Store, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{store: store, logger: logger}
}

// SetProgress installs an advisory progress callback, invoked per outer chunk
func (s *Scanner) SetProgress(fn telemetry.ProgressFunc) {
	s.onProgress = fn
}

// Scan walks r in outer chunks and returns the recorded-data windows
// grouped by local day. An empty range of data yields an empty Result, not
// an error; a fatal store error aborts the scan.
func (s *Scanner) Scan(ctx context.Context, r telemetry.TimeRange, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	chunk := time.Duration(opts.ChunkDays) * 24 * time.Hour

	windows, err := telemetry.SplitRange(r, chunk)
	if err != nil {
		return nil, err
	}

	var bins []telemetry.ActivityBin
	for i, w := range windows {
		got, err := s.processRange(ctx, w.Start, w.End, opts.Bin, 0, opts.MaxDepth)
		if err != nil {
			return nil, err
		}
		bins = append(bins, got...)
		s.logger.Debug("scan chunk done", "chunk", i+1, "total", len(windows), "bins", len(got))
		if s.onProgress != nil {
			s.onProgress(i+1, len(windows))
		}
	}

	result := &Result{days: make(map[string][]Window), loc: opts.Location}
	if len(bins) == 0 {
		return result, nil
	}

	for _, w := range compressBins(bins, opts.Bin) {
		w.StartLocal = w.StartUTC.In(opts.Location)
		w.EndLocal = w.EndUTC.In(opts.Location)
		day := w.StartLocal.Format("2006-01-02")
		result.days[day] = append(result.days[day], w)
	}
	return result, nil
}

// processRange fetches activity bins for [t0, t1), splitting in half on a
// transient failure. Small spans and exhausted recursion fall back to
// per-bin existence probes.
func (s *Scanner) processRange(ctx context.Context, t0, t1 time.Time, bin time.Duration, depth, maxDepth int) ([]telemetry.ActivityBin, error) {
	if t1.Sub(t0) <= 4*bin || depth >= maxDepth {
		return s.existsPerBin(ctx, t0, t1, bin)
	}

	got, err := s.store.QueryActivityBins(ctx, t0, t1, bin)
	if err == nil {
		return got, nil
	}

	classified := telemetry.ClassifyQueryError(err)
	var fatal *telemetry.FatalQueryError
	if errors.As(classified, &fatal) {
		return nil, classified
	}
	s.logger.Debug("activity query failed, splitting range",
		"start", t0, "end", t1, "depth", depth, "error", err)

	mid := t0.Add(t1.Sub(t0) / 2)
	if !mid.After(t0) || !mid.Before(t1) {
		return s.existsPerBin(ctx, t0, t1, bin)
	}

	left, err := s.processRange(ctx, t0, mid, bin, depth+1, maxDepth)
	if err != nil {
		return nil, err
	}
	right, err := s.processRange(ctx, mid, t1, bin, depth+1, maxDepth)
	if err != nil {
		return nil, err
	}
	return append(left, right...), nil
}

// existsPerBin probes each bin for any row at all. Probe errors skip the
// bin rather than failing the scan; the probe is already the last resort.
func (s *Scanner) existsPerBin(ctx context.Context, t0, t1 time.Time, bin time.Duration) ([]telemetry.ActivityBin, error) {
	var bins []telemetry.ActivityBin
	for cur := t0; cur.Before(t1); {
		next := cur.Add(bin)
		if next.After(t1) {
			next = t1
		}
		ok, err := s.store.HasData(ctx, cur, next)
		if err != nil {
			s.logger.Debug("existence probe failed", "start", cur, "error", err)
		} else if ok {
			bins = append(bins, telemetry.ActivityBin{Start: cur, Rows: 1})
		}
		cur = next
	}
	return bins, nil
}

package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/wfr-racing/slicks/pkg/config"
)

// Fetcher executes one query per window against the store, retrying
// transient failures, and accumulates results in window order. Windows are
// processed strictly serially: the store's own rate limits make serial,
// chunked access the safer default.
type Fetcher struct {
	store       Store
	maxAttempts int
	backoff     time.Duration
	onProgress  ProgressFunc
	logger      *slog.Logger
}

// NewFetcher creates a fetcher over the given store
func NewFetcher(store Store, cfg *config.Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		store:       store,
		maxAttempts: cfg.FetchMaxAttempts,
		backoff:     cfg.FetchBackoff(),
		logger:      logger,
	}
}

// SetProgress installs an advisory progress callback, invoked after each
// window completes
func (f *Fetcher) SetProgress(fn ProgressFunc) {
	f.onProgress = fn
}

// Fetch retrieves every window in order and pivots the accumulated points
// into a WideFrame. An exhausted retry budget for any single window aborts
// the whole fetch with a WindowFetchError; a fatal store error aborts
// immediately without retry. ErrNoData is returned when every window comes
// back empty.
func (f *Fetcher) Fetch(ctx context.Context, windows []QueryWindow, signals []string) (*WideFrame, error) {
	if len(windows) == 0 {
		return nil, ErrNoData
	}

	var points []Point
	for i, w := range windows {
		var got []Point
		attempts, err := RetryTransient(ctx, f.maxAttempts, f.backoff, func() error {
			res, qerr := f.store.QueryPoints(ctx, w.Start, w.End, signals)
			if qerr != nil {
				return ClassifyQueryError(qerr)
			}
			got = res
			return nil
		})
		if err != nil {
			var fatal *FatalQueryError
			if errors.As(err, &fatal) {
				f.logger.Error("fetch aborted", "window", i, "error", err)
				return nil, err
			}
			return nil, &WindowFetchError{Window: w, Index: i, Attempts: attempts, Err: err}
		}

		points = append(points, got...)
		f.logger.Debug("window fetched",
			"window", i+1,
			"total", len(windows),
			"rows", len(got),
			"attempts", attempts)
		if f.onProgress != nil {
			f.onProgress(i+1, len(windows))
		}
	}

	if len(points) == 0 {
		return nil, ErrNoData
	}
	return Pivot(points), nil
}

// FetchRange splits r into windows of at most chunk and fetches them
func (f *Fetcher) FetchRange(ctx context.Context, r TimeRange, chunk time.Duration, signals []string) (*WideFrame, error) {
	windows, err := SplitRange(r, chunk)
	if err != nil {
		return nil, err
	}
	return f.Fetch(ctx, windows, signals)
}

// Package discovery enumerates the distinct signal names recorded in a
// time range and keeps the shared signal registry fresh.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/wfr-racing/slicks/internal/telemetry"
	"github.com/wfr-racing/slicks/pkg/config"
)

// Scanner scans the store for unique signal names, window by window.
// Duplicates across windows collapse under set union, so the result is
// independent of chunking and idempotent under retries.
type Scanner struct {
	store       telemetry.Store
	maxAttempts int
	backoff     time.Duration
	onProgress  telemetry.ProgressFunc
	logger      *slog.Logger
}

// NewScanner creates a discovery scanner over the given store
func NewScanner(store telemetry.Store, cfg *config.Config, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		store:       store,
		maxAttempts: cfg.FetchMaxAttempts,
		backoff:     cfg.FetchBackoff(),
		logger:      logger,
	}
}

// SetProgress installs an advisory progress callback
func (s *Scanner) SetProgress(fn telemetry.ProgressFunc) {
	s.onProgress = fn
}

// Discover returns the sorted set of distinct signal names observed in r,
// queried in windows of at most chunk. Transient window failures are
// retried; a permanent failure aborts the scan.
func (s *Scanner) Discover(ctx context.Context, r telemetry.TimeRange, chunk time.Duration) ([]string, error) {
	windows, err := telemetry.SplitRange(r, chunk)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{})
	for i, w := range windows {
		var got []string
		attempts, err := telemetry.RetryTransient(ctx, s.maxAttempts, s.backoff, func() error {
			res, qerr := s.store.QueryDistinctSignals(ctx, w.Start, w.End)
			if qerr != nil {
				return telemetry.ClassifyQueryError(qerr)
			}
			got = res
			return nil
		})
		if err != nil {
			var fatal *telemetry.FatalQueryError
			if errors.As(err, &fatal) {
				return nil, fmt.Errorf("sensor discovery aborted: %w", err)
			}
			return nil, &telemetry.WindowFetchError{Window: w, Index: i, Attempts: attempts, Err: err}
		}

		for _, name := range got {
			if name != "" {
				names[name] = struct{}{}
			}
		}
		s.logger.Debug("discovery window done", "window", i+1, "total", len(windows), "names", len(got))
		if s.onProgress != nil {
			s.onProgress(i+1, len(windows))
		}
	}

	unique := make([]string, 0, len(names))
	for name := range names {
		unique = append(unique, name)
	}
	sort.Strings(unique)
	return unique, nil
}

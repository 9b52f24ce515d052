package telemetry

import (
	"context"
	"time"
)

// Store is the query capability the engine consumes. Implementations live
// in pkg/influx and pkg/timescale; tests use in-memory fakes.
//
// Errors returned by a Store should be classified with ClassifyQueryError
// so the fetch layer can tell transient failures from fatal ones.
type Store interface {
	// QueryPoints returns all long-format rows in [start, end), optionally
	// restricted to the given signal names.
	QueryPoints(ctx context.Context, start, end time.Time, signals []string) ([]Point, error)

	// QueryDistinctSignals returns the distinct signal names observed in [start, end)
	QueryDistinctSignals(ctx context.Context, start, end time.Time) ([]string, error)

	// QueryActivityBins returns per-bucket row counts for [start, end),
	// omitting empty buckets
	QueryActivityBins(ctx context.Context, start, end time.Time, bin time.Duration) ([]ActivityBin, error)

	// HasData reports whether any row exists in [start, end)
	HasData(ctx context.Context, start, end time.Time) (bool, error)
}

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoData marks an empty result: every window returned zero rows.
// Callers branch on it with errors.Is; it is informational, not a failure.
var ErrNoData = errors.New("no telemetry data found")

// InvalidRangeError reports a malformed input range (end <= start)
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid time range: end %s is not after start %s",
		e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

// TransientError wraps a store failure worth retrying (network, timeout,
// rate limit, server resource limits)
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient query failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalQueryError wraps a store failure that will not resolve by retrying,
// such as an authentication failure or a missing table
type FatalQueryError struct {
	Err error
}

func (e *FatalQueryError) Error() string {
	return fmt.Sprintf("fatal query failure: %v", e.Err)
}

func (e *FatalQueryError) Unwrap() error {
	return e.Err
}

// WindowFetchError reports a window whose retry budget was exhausted.
// It aborts the whole multi-window fetch: no partial result is ever
// returned as if complete.
type WindowFetchError struct {
	Window   QueryWindow
	Index    int
	Attempts int
	Err      error
}

func (e *WindowFetchError) Error() string {
	return fmt.Sprintf("window %d [%s, %s) failed after %d attempts: %v",
		e.Index,
		e.Window.Start.Format(time.RFC3339),
		e.Window.End.Format(time.RFC3339),
		e.Attempts, e.Err)
}

func (e *WindowFetchError) Unwrap() error {
	return e.Err
}

// Error message fragments that indicate a permanent failure. Anything else
// coming back from a store is assumed recoverable.
var permanentErrorPatterns = []string{
	"table not found",
	"not found",
	"unauthorized",
	"unauthenticated",
	"permission denied",
	"invalid token",
	"database not found",
	"bucket not found",
	"syntax error",
}

// ClassifyQueryError wraps a raw store error as transient or fatal.
// Already-classified errors and nil pass through unchanged. Context
// cancellation is fatal: retrying a dead context cannot help.
func ClassifyQueryError(err error) error {
	if err == nil {
		return nil
	}
	var te *TransientError
	var fe *FatalQueryError
	if errors.As(err, &te) || errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &FatalQueryError{Err: err}
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range permanentErrorPatterns {
		if strings.Contains(msg, pattern) {
			return &FatalQueryError{Err: err}
		}
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is classified as retryable
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// RetryTransient runs fn up to attempts times, sleeping with a doubling
// backoff between transient failures. Fatal errors stop immediately.
// It returns the number of attempts made and the last error, if any.
func RetryTransient(ctx context.Context, attempts int, backoff time.Duration, fn func() error) (int, error) {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return attempt, nil
		}
		if !IsTransient(err) {
			return attempt, err
		}
		if attempt == attempts {
			return attempt, err
		}
		if werr := sleepContext(ctx, backoff); werr != nil {
			return attempt, &FatalQueryError{Err: werr}
		}
		backoff *= 2
	}
	return attempts, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

package shared

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// RemoteError describes a failure reported by a remote collaborator.
// Transient failures (rate limits, gateway errors, network timeouts) are
// retried; permanent failures (not found, permission denied, malformed id)
// are not.
type RemoteError struct {
	Op        string
	Transient bool
	Err       error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsTransient reports whether an error should be retried. It walks the wrap
// chain looking for a RemoteError classification; unclassified errors are
// treated as permanent.
func IsTransient(err error) bool {
	var rerr *RemoteError
	if errors.As(err, &rerr) {
		return rerr.Transient
	}
	return false
}

// RetryWithBackoff runs fn up to maxTries times, sleeping with capped
// exponential backoff and jitter between attempts. It stops on the first
// success, the first permanent failure, or when the context is cancelled.
// The returned count is the number of attempts actually made.
func RetryWithBackoff(ctx context.Context, maxTries int, initialDelay, maxDelay time.Duration, fn func() error) (int, error) {
	if maxTries < 1 {
		maxTries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxTries; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt, err
		}

		lastErr = fn()
		if lastErr == nil {
			return attempt + 1, nil
		}

		if !IsTransient(lastErr) {
			return attempt + 1, lastErr
		}

		if attempt == maxTries-1 {
			break // don't sleep after the last attempt
		}

		delay := initialDelay * time.Duration(1<<uint(attempt))
		if delay > maxDelay {
			delay = maxDelay
		}

		// ±25% jitter
		jitter := time.Duration(rand.Int63n(int64(delay/2))) - delay/4
		finalDelay := delay + jitter
		if finalDelay < 0 {
			finalDelay = delay
		}

		select {
		case <-ctx.Done():
			return attempt + 1, ctx.Err()
		case <-time.After(finalDelay):
		}
	}

	return maxTries, fmt.Errorf("failed after %d attempts: %w", maxTries, lastErr)
}

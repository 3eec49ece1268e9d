package loader

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for loading operations.
var (
	// ErrNotFound is returned when a source does not exist (404, missing file).
	ErrNotFound = errors.New("source not found")

	// ErrDecode is returned when a source is not a JSON array of node records.
	ErrDecode = errors.New("malformed node document")

	// ErrOffline is returned in offline mode when a source is not cached.
	ErrOffline = errors.New("source not cached (offline)")
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (network errors, 5xx responses) with this type
// so that retry attempts the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a RetryableError.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable checks if an error is wrapped with RetryableError.
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// retry executes fn up to attempts times, doubling delay after each
// retryable failure. Other errors are returned immediately.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

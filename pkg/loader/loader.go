// Package loader fetches a resource from the first source in an ordered list
// that answers within a bounded wait.
package loader

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoSources is returned when the source list is empty
	ErrNoSources = errors.New("loader: no sources configured")

	// ErrTimeout marks an attempt that did not finish within its wait
	ErrTimeout = errors.New("timeout")
)

// ExhaustedError is returned when every source failed. It unwraps to the
// failure of the last source tried.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("loader: all %d sources failed, last: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// FetchFunc loads the resource from one source
type FetchFunc[T any] func(ctx context.Context, source string) (T, error)

type attempt[T any] struct {
	value T
	err   error
}

// Load tries sources in order and returns the first value fetched together
// with the source it came from. Each attempt is abandoned after timeout, even
// when fetch ignores its context. Cancelling ctx stops the walk.
func Load[T any](ctx context.Context, sources []string, timeout time.Duration, fetch FetchFunc[T]) (T, string, error) {
	var zero T
	if len(sources) == 0 {
		return zero, "", ErrNoSources
	}

	var lastErr error
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		value, err := try(ctx, src, timeout, fetch)
		if err == nil {
			return value, src, nil
		}
		if ctx.Err() != nil {
			return zero, "", ctx.Err()
		}
		lastErr = fmt.Errorf("%s: %w", src, err)
	}

	return zero, "", &ExhaustedError{Attempts: len(sources), Last: lastErr}
}

func try[T any](ctx context.Context, src string, timeout time.Duration, fetch FetchFunc[T]) (T, error) {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan attempt[T], 1)
	go func() {
		v, err := fetch(attemptCtx, src)
		done <- attempt[T]{value: v, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return res.value, ErrTimeout
		}
		return res.value, res.err
	case <-attemptCtx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, ErrTimeout
	}
}

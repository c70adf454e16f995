package resilience

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
)

// WithTimeout runs fn with a derived context that is cancelled after the
// given timeout. When the limit is hit first the returned error wraps
// apperrors.ErrTimeout; fn keeps running in the background until it
// notices its context.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	_, err := CallWithTimeout(ctx, timeout, name, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// CallWithTimeout is WithTimeout for functions that produce a value. The
// value is handed over only when fn finishes in time, so a late result is
// never observed by the caller.
func CallWithTimeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(timeoutCtx)
		done <- outcome{v, err}
	}()

	var zero T
	select {
	case out := <-done:
		return out.val, out.err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
		}
		return zero, fmt.Errorf("%s: %w (limit: %v)", name, apperrors.ErrTimeout, timeout)
	}
}

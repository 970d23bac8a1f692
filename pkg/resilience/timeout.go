package resilience

import (
	"context"
	"fmt"
	"time"
)

// WithTimeout runs fn inline with a context cancelled after timeout, so fn
// has always returned by the time WithTimeout does. Overrunning the limit is
// an error even when fn ignores ctx and finishes anyway. A non-positive
// timeout runs fn without a limit.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(timeoutCtx)
	if timeoutCtx.Err() == nil {
		return err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: parent context cancelled: %w", name, ctx.Err())
	}
	return fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
}

// Package wait provides a deadline-aware polling primitive.
//
// Provisioning code needs to block until a remote resource reaches a usable
// state. All such waits go through Until so they are bounded and cancellable
// instead of looping forever.
package wait

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned when the condition did not become true before the
// configured timeout elapsed. Callers can distinguish it from condition
// errors with errors.Is.
var ErrTimeout = errors.New("timed out waiting for condition")

// Condition reports whether the awaited state has been reached. Returning an
// error aborts the wait immediately.
type Condition func(ctx context.Context) (done bool, err error)

// Until polls cond every interval until it returns true, the timeout elapses,
// or ctx is cancelled. The condition is evaluated once immediately.
func Until(ctx context.Context, interval, timeout time.Duration, cond Condition) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		done, err := cond(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w after %s", ErrTimeout, timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Prepare runs an engine's init step. With bulk set, the engine is first
// started in ModeBulk and awaited, and stopped again once init returns, so
// data loading runs against the fast configuration.
func Prepare(ctx context.Context, l Lifecycle, bulk bool, startTimeout, poll time.Duration) error {
	if !bulk {
		return l.Init(ctx)
	}

	if err := l.Start(ctx, ModeBulk); err != nil {
		return fmt.Errorf("start %q in bulk mode: %w", l.Name(), err)
	}

	initErr := awaitPing(ctx, l, startTimeout, poll)
	if initErr == nil {
		initErr = l.Init(ctx)
	}

	if err := l.Stop(context.WithoutCancel(ctx)); err != nil {
		return errors.Join(initErr, fmt.Errorf("stop %q after bulk load: %w", l.Name(), err))
	}
	return initErr
}

func awaitPing(ctx context.Context, l Lifecycle, timeout, poll time.Duration) error {
	var waited time.Duration
	for !l.Ping(ctx) {
		if waited >= timeout {
			return fmt.Errorf("engine %q not ready in bulk mode within %s: %s",
				l.Name(), timeout, l.Diagnostics(context.WithoutCancel(ctx)))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
		waited += poll
	}
	return nil
}

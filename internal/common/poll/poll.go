package poll

import (
	"context"
	"errors"
	"time"
)

// ErrStopped is returned when the context is cancelled before the condition is met.
var ErrStopped = errors.New("polling stopped")

// CheckFunc reports whether the awaited condition holds. A returned error is passed to
// the OnError hook and polling continues.
type CheckFunc func(ctx context.Context) (bool, error)

type Options struct {
	Interval time.Duration
	// Immediate runs the first check without waiting for the first tick.
	Immediate bool
	OnError   func(err error)
}

// Until re-runs check at a fixed interval until it returns true or ctx is done.
// The ticker is always stopped on return.
func Until(ctx context.Context, opts Options, check CheckFunc) error {
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}

	run := func() bool {
		ok, err := check(ctx)
		if err != nil {
			if opts.OnError != nil {
				opts.OnError(err)
			}
			return false
		}
		return ok
	}

	if opts.Immediate && run() {
		return nil
	}

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return errors.Join(ErrStopped, ctx.Err())
		case <-ticker.C:
			if run() {
				return nil
			}
		}
	}
}

package playback

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/likesorter/internal/shared"
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// RetryPolicy retries an operation a fixed number of times with a fixed delay.
type RetryPolicy struct {
	MaxAttempts int              // Total attempts, including the first
	Delay       time.Duration    // Wait before each retry
	Retryable   func(error) bool // Nil means nothing is retried
}

// PlayRetry retries a play command once, 500ms later, when the device was not found.
var PlayRetry = RetryPolicy{
	MaxAttempts: 2,
	Delay:       500 * time.Millisecond,
	Retryable:   func(err error) bool { return errors.Is(err, shared.ErrNotFound) },
}

// Do runs fn until it succeeds, fails with a terminal error or runs out of attempts.
// The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, sleep Sleeper, fn func(context.Context) error) error {
	attempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if serr := sleep(ctx, p.Delay); serr != nil {
				return serr
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return err
		}
	}
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

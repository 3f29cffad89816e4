// Package retry runs an operation repeatedly under a bounded exponential
// backoff policy. Each attempt calls the function afresh, so callers that sign
// requests get a new timestamp per attempt.
package retry

import (
	"context"
	"time"

	"github.com/kazeochan/tempbin/tbtypes"
)

// Do invokes fn up to policy.MaxAttempts times, sleeping between attempts
// starting at policy.InitialDelay and multiplying by policy.Multiplier. The
// sleep is cut short when ctx is canceled, in which case the context error is
// returned. When all attempts fail, the error of the last attempt is returned.
func Do(ctx context.Context, policy tbtypes.RetryPolicy, fn func() error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var err error
	delay := policy.InitialDelay
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = fn(); err == nil {
			return nil
		}
		if attempt == policy.MaxAttempts {
			break
		}
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
		delay = time.Duration(float64(delay) * policy.Multiplier)
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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

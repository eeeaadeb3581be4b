package fork

import (
	"context"
	"math/rand"
	"time"
)

// retryWithBackoff calls fn up to maxAttempts times while it fails transiently.
// The delay starts at initialDelay and doubles each time up to maxDelay, with
// ±10% jitter. Each attempt gets its own timeout derived from ctx.
// It returns the number of attempts made along with the last error.
func retryWithBackoff(
	ctx context.Context,
	maxAttempts int,
	initialDelay, maxDelay, timeout time.Duration,
	fn func(context.Context) error,
) (int, error) {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec G404

	delay := initialDelay
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = callWithTimeout(ctx, timeout, fn)
		if lastErr == nil {
			return attempt, nil
		}
		// the cache itself is shutting down
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if !IsTransient(lastErr) || attempt == maxAttempts {
			return attempt, lastErr
		}
		metricRetries().Add(1)
		logger.Debug("remote lookup failed, retrying", "attempt", attempt, "delay", delay, "err", lastErr)

		// jitter in [0.9, 1.1]
		jitter := 0.9 + 0.2*rng.Float64()
		sleepFor := min(time.Duration(float64(delay)*jitter), maxDelay)

		timer := time.NewTimer(sleepFor)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}

		delay = min(delay*2, maxDelay)
	}
	return maxAttempts, lastErr
}

func callWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

package worker

import (
	"context"
	"time"

	"github.com/ppiankov/credence/internal/model"
)

// retrySleep is replaced in tests
var retrySleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Retry calls fn up to attempts times, backing off exponentially from base
// (base, 2*base, 4*base...) while the error is transient per
// model.IsRetryable. The last error is returned.
func Retry[T any](ctx context.Context, attempts int, base time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if attempts <= 0 {
		attempts = 1
	}

	var (
		result T
		err    error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		result, err = fn(ctx)
		if err == nil || !model.IsRetryable(err) || attempt == attempts-1 {
			return result, err
		}
		if sleepErr := retrySleep(ctx, base*time.Duration(1<<attempt)); sleepErr != nil {
			return result, err
		}
	}
	return result, err
}

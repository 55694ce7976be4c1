package util

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// DialRetryOptions returns retry options for connecting to a server socket
// that may still be starting up.
func DialRetryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Attempts(5),
		retry.Delay(50 * time.Millisecond),
		retry.MaxDelay(500 * time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	}
}

// RetryWithResult executes fn with retry logic and returns the result.
// Returns the last error if all attempts fail.
func RetryWithResult[T any](ctx context.Context, fn func() (T, error), opts ...retry.Option) (T, error) {
	if len(opts) == 0 {
		opts = DialRetryOptions(ctx)
	}
	return retry.DoWithData(fn, opts...)
}

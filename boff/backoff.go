// This file contains helper functions for retrying operations with exponential backoff.
// The idea is to avoid repetition with common retry boilerplate code.
package boff

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"raisefunds/config"
	"raisefunds/logger"
)

func RetryWithMaxElapsed[T any](ctx context.Context, operation func() (T, error), name string) (T, error) {
	return retry(ctx, operation, name, config.BackoffMaxElapsedTime)
}

// RetryWithTimeout runs each attempt with its own deadline of config.Timeout
// and gives up after config.BackoffMaxElapsedTime.
func RetryWithTimeout[T any](ctx context.Context, operation func(ctx context.Context) (T, error), name string) (T, error) {
	return RetryWithTimeoutWithin(ctx, operation, name, config.BackoffMaxElapsedTime)
}

// RetryWithTimeoutWithin is RetryWithTimeout with its own limit on the total
// time spent retrying, for callers that answer a request.
func RetryWithTimeoutWithin[T any](ctx context.Context, operation func(ctx context.Context) (T, error), name string, maxElapsedTime time.Duration) (T, error) {
	return retry(
		ctx,
		func() (T, error) {
			ctx, cancel := context.WithTimeout(ctx, config.Timeout)
			defer cancel()

			return operation(ctx)
		},
		name,
		maxElapsedTime,
	)
}

// Permanent marks an error that must not be retried.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func retry[T any](ctx context.Context, operation func() (T, error), name string, maxElapsedTime time.Duration) (T, error) {
	return backoff.Retry(
		ctx,
		operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithNotify(
			func(err error, d time.Duration) {
				logger.Debug("%s error: %s - retrying after %v", name, err, d)
			},
		),
	)
}

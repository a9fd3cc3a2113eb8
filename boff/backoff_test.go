package boff

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestRetryRecovers(t *testing.T) {
	attempts := 0
	res, err := RetryWithMaxElapsed(context.Background(), func() (int, error) {
		attempts++
		if attempts < 2 {
			return 0, errFlaky
		}
		return 7, nil
	}, "flaky op")

	require.NoError(t, err)
	assert.Equal(t, 7, res)
	assert.Equal(t, 2, attempts)
}

func TestRetryPermanentStops(t *testing.T) {
	attempts := 0
	_, err := RetryWithMaxElapsed(context.Background(), func() (struct{}, error) {
		attempts++
		return struct{}{}, Permanent(errFlaky)
	}, "permanent op")

	require.ErrorIs(t, err, errFlaky)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithTimeoutPassesDeadline(t *testing.T) {
	_, err := RetryWithTimeout(context.Background(), func(ctx context.Context) (struct{}, error) {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return struct{}{}, nil
	}, "deadline op")

	require.NoError(t, err)
}

func TestRetryWithTimeoutWithinGivesUp(t *testing.T) {
	start := time.Now()
	_, err := RetryWithTimeoutWithin(context.Background(), func(ctx context.Context) (int, error) {
		return 0, errFlaky
	}, "failing op", 200*time.Millisecond)

	require.ErrorIs(t, err, errFlaky)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRetryContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RetryWithMaxElapsed(ctx, func() (int, error) {
		return 0, errFlaky
	}, "cancelled op")

	require.Error(t, err)
}

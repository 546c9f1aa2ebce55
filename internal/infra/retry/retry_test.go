package retry

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions(maxRetries int) Options {
	return Options{MaxRetries: maxRetries, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDoRetriesRateLimitUntilExhausted(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOptions(3), func() error {
		calls++
		return &HTTPError{StatusCode: http.StatusTooManyRequests}
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls, "one attempt plus three retries")

	var exhausted *ExhaustedError
	require.True(t, errors.As(err, &exhausted))
	assert.Equal(t, 4, exhausted.Attempts)
	assert.True(t, IsRateLimited(err))
}

func TestDoStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOptions(5), func() error {
		calls++
		if calls < 3 {
			return &HTTPError{StatusCode: http.StatusServiceUnavailable}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastOptions(5), func() error {
		calls++
		return &HTTPError{StatusCode: http.StatusBadRequest}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))
}

func TestDoRateLimitOnlyPredicate(t *testing.T) {
	opts := fastOptions(3)
	opts.RetryOn = IsRateLimited

	calls := 0
	err := Do(context.Background(), opts, func() error {
		calls++
		return &HTTPError{StatusCode: http.StatusBadGateway}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	opts := Options{MaxRetries: 5, BaseDelay: time.Hour}

	calls := 0
	errCh := make(chan error, 1)
	go func() {
		errCh <- Do(ctx, opts, func() error {
			calls++
			return &HTTPError{StatusCode: http.StatusTooManyRequests}
		})
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancel")
	}
	assert.Equal(t, 1, calls)
}

func TestDelayIsExponentialAndClamped(t *testing.T) {
	opts := Options{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Backoff: 2}
	assert.Equal(t, 100*time.Millisecond, Delay(opts, 0))
	assert.Equal(t, 200*time.Millisecond, Delay(opts, 1))
	assert.Equal(t, 400*time.Millisecond, Delay(opts, 2))
	assert.Equal(t, time.Second, Delay(opts, 10))

	opts.Jitter = true
	for i := 0; i < 20; i++ {
		assert.LessOrEqual(t, Delay(opts, 2), 400*time.Millisecond)
	}
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, ParseRetryAfter("3"))
	assert.Zero(t, ParseRetryAfter(""))
	assert.Zero(t, ParseRetryAfter("soon"))
	future := time.Now().Add(time.Minute).UTC().Format(http.TimeFormat)
	assert.Greater(t, ParseRetryAfter(future), 30*time.Second)
}

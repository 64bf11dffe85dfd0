package httpclient

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noWait() backoff.BackOff { return &backoff.ZeroBackOff{} }

func appError(status int) error {
	return NewApplicationError(&Result{Kind: KindText, StatusCode: status, StatusMessage: http.StatusText(status)})
}

func TestRetryTransient(t *testing.T) {
	assert.True(t, RetryTransient(NewTransportError("connect", errors.New("refused")), 0))
	assert.True(t, RetryTransient(NewTimeoutError("connection idle", time.Second, nil), 0))
	assert.True(t, RetryTransient(appError(http.StatusServiceUnavailable), 0))
	assert.False(t, RetryTransient(appError(http.StatusNotFound), 0))
	assert.False(t, RetryTransient(NewConfigurationError("uri", "bad"), 0))
	assert.False(t, RetryTransient(errors.New("plain"), 0))
}

func TestRetryPolicyDisabled(t *testing.T) {
	calls := 0
	err := RetryPolicy{}.run(context.Background(), func(attempt int) error {
		calls++
		assert.Equal(t, 0, attempt)
		return NewTransportError("connect", nil)
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.False(t, RetryPolicy{}.Enabled())
}

func TestRetryPolicyRetriesUntilSuccess(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 3, ShouldRetry: RetryTransient, Backoff: noWait}

	var attempts, notified []int
	err := policy.run(context.Background(),
		func(attempt int) error {
			attempts = append(attempts, attempt)
			if attempt < 2 {
				return appError(http.StatusBadGateway)
			}
			return nil
		},
		func(_ error, attempt int, _ time.Duration) { notified = append(notified, attempt) },
	)

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, attempts)
	assert.Equal(t, []int{0, 1}, notified)
}

func TestRetryPolicyExhausted(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 2, ShouldRetry: RetryAny, Backoff: noWait}

	calls := 0
	err := policy.run(context.Background(), func(int) error {
		calls++
		return appError(http.StatusInternalServerError)
	}, nil)

	assert.Equal(t, 3, calls, "first attempt plus two retries")
	assert.True(t, IsHTTPStatusError(err, http.StatusInternalServerError))
}

func TestRetryPolicyStopsOnIneligibleError(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, ShouldRetry: RetryTransient, Backoff: noWait}

	calls := 0
	err := policy.run(context.Background(), func(int) error {
		calls++
		return appError(http.StatusNotFound)
	}, nil)

	assert.Equal(t, 1, calls)
	assert.True(t, IsHTTPStatusError(err, http.StatusNotFound), "permanent wrapper is removed")
}

func TestRetryPolicyNeverRetriesConfigurationErrors(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, ShouldRetry: RetryAny, Backoff: noWait}

	calls := 0
	err := policy.run(context.Background(), func(int) error {
		calls++
		return NewConfigurationError("uri", "uri is required")
	}, nil)

	assert.Equal(t, 1, calls)
	assert.True(t, IsConfigurationError(err))
}

func TestRetryPolicyPredicateSeesAttempt(t *testing.T) {
	var seen []int
	policy := RetryPolicy{
		MaxRetries: 5,
		ShouldRetry: func(_ error, attempt int) bool {
			seen = append(seen, attempt)
			return attempt < 1
		},
		Backoff: noWait,
	}

	calls := 0
	_ = policy.run(context.Background(), func(int) error {
		calls++
		return NewTransportError("reset", nil)
	}, nil)

	assert.Equal(t, 2, calls)
	assert.Equal(t, []int{0, 1}, seen)
}

func TestRetryPolicyCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{
		MaxRetries:  3,
		ShouldRetry: RetryAny,
		Backoff:     func() backoff.BackOff { return backoff.NewConstantBackOff(time.Hour) },
	}

	start := time.Now()
	err := policy.run(ctx, func(int) error {
		cancel()
		return NewTransportError("reset", nil)
	}, nil)

	require.Error(t, err)
	assert.True(t, IsErrorType(err, TransportError))
	assert.Less(t, time.Since(start), time.Minute)
}

func TestRetryConstructors(t *testing.T) {
	transient := TransientRetry(3)
	assert.Equal(t, 3, transient.MaxRetries)
	assert.True(t, transient.Enabled())
	assert.IsType(t, &backoff.ExponentialBackOff{}, transient.Backoff())

	legacy := LegacyRetry(2)
	assert.Equal(t, 2, legacy.MaxRetries)
	assert.True(t, legacy.ShouldRetry(appError(http.StatusNotFound), 0))
	assert.Equal(t, time.Duration(0), legacy.Backoff().NextBackOff())
}

func TestDefaultBackoffIntervals(t *testing.T) {
	b := DefaultBackoff()
	first := b.NextBackOff()
	assert.GreaterOrEqual(t, first, DefaultRetryInitialInterval/2)
	assert.LessOrEqual(t, first, DefaultRetryInitialInterval*3/2)

	for range 50 {
		assert.LessOrEqual(t, b.NextBackOff(), DefaultRetryMaxInterval*3/2)
	}
}

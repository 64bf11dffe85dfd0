package httpclient

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultRetryInitialInterval is the first wait of the default exponential backoff
	DefaultRetryInitialInterval = 100 * time.Millisecond
	// DefaultRetryMaxInterval caps a single wait of the default exponential backoff
	DefaultRetryMaxInterval = 2 * time.Second
)

// RetryPredicate decides whether a failed attempt (0-based) is re-issued
type RetryPredicate func(err error, attempt int) bool

// RetryPolicy re-issues a failed call up to MaxRetries extra times.
// The zero value never retries. Configuration errors are never retried, whatever
// ShouldRetry says.
type RetryPolicy struct {
	MaxRetries int
	// ShouldRetry defaults to RetryTransient
	ShouldRetry RetryPredicate
	// Backoff returns a fresh backoff per call; defaults to DefaultBackoff
	Backoff func() backoff.BackOff
}

// RetryTransient retries transport failures and 5xx answers.
func RetryTransient(err error, _ int) bool {
	if IsErrorType(err, TransportError) {
		return true
	}
	if res, ok := AsApplicationError(err); ok && res != nil {
		return res.StatusCode >= 500
	}
	return false
}

// RetryAny retries every failure.
func RetryAny(error, int) bool { return true }

// DefaultBackoff is an exponential backoff between DefaultRetryInitialInterval and
// DefaultRetryMaxInterval without an elapsed-time limit.
func DefaultBackoff() backoff.BackOff {
	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(DefaultRetryInitialInterval),
		backoff.WithMaxInterval(DefaultRetryMaxInterval),
		backoff.WithMaxElapsedTime(0),
	)
}

// TransientRetry retries transport failures and 5xx answers n times with exponential backoff.
func TransientRetry(n int) RetryPolicy {
	return RetryPolicy{MaxRetries: n, ShouldRetry: RetryTransient, Backoff: DefaultBackoff}
}

// LegacyRetry retries any non-configuration failure n times without delay.
func LegacyRetry(n int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:  n,
		ShouldRetry: RetryAny,
		Backoff:     func() backoff.BackOff { return &backoff.ZeroBackOff{} },
	}
}

// Enabled reports whether the policy allows at least one retry
func (p RetryPolicy) Enabled() bool { return p.MaxRetries > 0 }

func (p RetryPolicy) eligible(err error, attempt int) bool {
	if IsConfigurationError(err) {
		return false
	}
	pred := p.ShouldRetry
	if pred == nil {
		pred = RetryTransient
	}
	return pred(err, attempt)
}

func (p RetryPolicy) newBackoff(ctx context.Context) backoff.BackOff {
	newBackoff := p.Backoff
	if newBackoff == nil {
		newBackoff = DefaultBackoff
	}
	return backoff.WithContext(backoff.WithMaxRetries(newBackoff(), uint64(p.MaxRetries)), ctx)
}

// run calls op until it succeeds, the failure is not eligible or the budget is spent.
// notify runs before each retry with the failed attempt number and the wait.
func (p RetryPolicy) run(ctx context.Context, op func(attempt int) error, notify func(err error, attempt int, wait time.Duration)) error {
	if !p.Enabled() {
		return op(0)
	}

	attempt := 0
	operation := func() error {
		current := attempt
		attempt++
		err := op(current)
		if err != nil && !p.eligible(err, current) {
			return backoff.Permanent(err)
		}
		return err
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, wait time.Duration) { notify(err, attempt-1, wait) }
	}

	err := backoff.RetryNotify(operation, p.newBackoff(ctx), onRetry)
	var ce ClientError
	if err != nil && !errors.As(err, &ce) {
		// the backoff wait was cut short by ctx
		return NewTransportError("request aborted", err)
	}
	return err
}

package xbridge

import (
	"context"
	"errors"
	"log/slog"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
)

// retryState models the life of one retried call. Transitions are computed by
// nextState so the policy can be tested without performing any I/O.
type retryState int

const (
	stateAttempting retryState = iota
	stateBackingOff
	stateSucceeded
	stateExhausted
)

// nextState maps the outcome of one attempt to the following state.
// Fatal errors stop immediately; retryable ones back off until the attempt
// budget is spent.
func nextState(class errorClass, attempt, maxAttempts int) retryState {
	if class == classFatal {
		return stateExhausted
	}
	if attempt >= maxAttempts {
		return stateExhausted
	}
	return stateBackingOff
}

// retrier wraps dispatcher calls with classification and exponential backoff.
// Policy is independent of the endpoint being called: classify once, retry
// generically.
type retrier struct {
	maxAttempts int
	backoff     stealth.BackoffConfig
	log         *slog.Logger

	// sleep is swapped out in tests to observe delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

func newRetrier(cfg Config, log *slog.Logger) *retrier {
	return &retrier{
		maxAttempts: cfg.MaxAttempts,
		backoff: stealth.BackoffConfig{
			InitialWait: cfg.BackoffInitial,
			MaxWait:     cfg.BackoffCap,
			Multiplier:  2.0,
			JitterPct:   0.3,
		},
		log:   log,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// do runs fn up to maxAttempts times. Each attempt gets its own timeout via
// the dispatcher; the backoff sleep blocks only this call. Fatal errors
// propagate unwrapped, exhausted retryable errors come back wrapped in
// RetryExhaustedError with the last cause attached.
func (r *retrier) do(ctx context.Context, op string, fn func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		data, err := fn(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err

		class := classify(err)
		switch nextState(class, attempt, r.maxAttempts) {
		case stateExhausted:
			if class == classFatal {
				return nil, err
			}
			return nil, &RetryExhaustedError{Endpoint: op, Attempts: attempt, LastErr: err}
		case stateBackingOff:
			delay := r.delay(err, attempt)
			r.log.Warn("retrying",
				slog.String("endpoint", op),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.Any("error", err))
			if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
				return nil, sleepErr
			}
		}
	}
	return nil, &RetryExhaustedError{Endpoint: op, Attempts: r.maxAttempts, LastErr: lastErr}
}

// delay computes the wait before the next attempt. A 429 carrying a
// Retry-After hint overrides the exponential schedule.
func (r *retrier) delay(err error, attempt int) time.Duration {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) && httpErr.Status == 429 && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}
	return r.backoff.Duration(attempt)
}

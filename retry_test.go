package xbridge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/stretchr/testify/require"
)

func newTestRetrier(maxAttempts int) (*retrier, *[]time.Duration) {
	delays := &[]time.Duration{}
	r := &retrier{
		maxAttempts: maxAttempts,
		backoff: stealth.BackoffConfig{
			InitialWait: 10 * time.Millisecond,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
			JitterPct:   0.3,
		},
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		sleep: func(_ context.Context, d time.Duration) error {
			*delays = append(*delays, d)
			return nil
		},
	}
	return r, delays
}

func TestNextState(t *testing.T) {
	tests := []struct {
		name     string
		class    errorClass
		attempt  int
		max      int
		expected retryState
	}{
		{"fatal stops immediately", classFatal, 1, 3, stateExhausted},
		{"fatal stops mid-flight", classFatal, 2, 3, stateExhausted},
		{"retryable backs off", classRetryable, 1, 3, stateBackingOff},
		{"retryable backs off again", classRetryable, 2, 3, stateBackingOff},
		{"retryable exhausts at max", classRetryable, 3, 3, stateExhausted},
		{"single attempt budget", classRetryable, 1, 1, stateExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextState(tt.class, tt.attempt, tt.max); got != tt.expected {
				t.Fatalf("nextState(%d, %d, %d) = %d, want %d", tt.class, tt.attempt, tt.max, got, tt.expected)
			}
		})
	}
}

func TestRetrierTransientFailuresThenSuccess(t *testing.T) {
	r, delays := newTestRetrier(3)

	calls := 0
	data, err := r.do(context.Background(), "Timeline", func(context.Context) ([]byte, error) {
		calls++
		if calls <= 2 {
			return nil, &TransportError{Endpoint: "Timeline", Err: errors.New("connection reset")}
		}
		return []byte(`[]`), nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte(`[]`), data)
	require.Equal(t, 3, calls)

	// Exponential growth: the second inter-attempt delay is at least the first.
	require.Len(t, *delays, 2)
	require.GreaterOrEqual(t, (*delays)[1], (*delays)[0])
}

func TestRetrierRetryAfterHintOverridesBackoff(t *testing.T) {
	r, delays := newTestRetrier(3)

	calls := 0
	_, err := r.do(context.Background(), "Timeline", func(context.Context) ([]byte, error) {
		calls++
		if calls == 1 {
			return nil, &HTTPError{Endpoint: "Timeline", Status: 429, RetryAfter: 7 * time.Second}
		}
		return []byte(`[]`), nil
	})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, []time.Duration{7 * time.Second}, *delays)
}

func TestRetrierFatalPropagatesImmediately(t *testing.T) {
	r, delays := newTestRetrier(3)

	calls := 0
	_, err := r.do(context.Background(), "TweetByID", func(context.Context) ([]byte, error) {
		calls++
		return nil, &HTTPError{Endpoint: "TweetByID", Status: 404}
	})

	require.Equal(t, 1, calls)
	require.Empty(t, *delays)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, 404, httpErr.Status)

	var exhausted *RetryExhaustedError
	require.False(t, errors.As(err, &exhausted), "fatal errors must not be wrapped as exhaustion")
}

func TestRetrierExhaustsAndWrapsLastError(t *testing.T) {
	r, _ := newTestRetrier(3)

	calls := 0
	_, err := r.do(context.Background(), "Timeline", func(context.Context) ([]byte, error) {
		calls++
		return nil, &HTTPError{Endpoint: "Timeline", Status: 503}
	})

	require.Equal(t, 3, calls)

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Equal(t, 3, exhausted.Attempts)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, 503, httpErr.Status)
}

func TestRetrierStopsOnCanceledContext(t *testing.T) {
	r, _ := newTestRetrier(3)
	r.sleep = sleepCtx

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := r.do(ctx, "Timeline", func(context.Context) ([]byte, error) {
		calls++
		return nil, &TransportError{Endpoint: "Timeline", Err: errors.New("timeout")}
	})

	require.Equal(t, 1, calls)
	require.ErrorIs(t, err, context.Canceled)
}

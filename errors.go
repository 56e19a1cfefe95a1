package xbridge

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrNotImplemented is returned by operations the bridge does not support yet.
var ErrNotImplemented = errors.New("not implemented by the bridge")

// InvalidSessionError indicates the session is missing, malformed, or rejected
// by the bridge. Never retried.
type InvalidSessionError struct {
	Reason string
}

func (e *InvalidSessionError) Error() string {
	return "invalid session: " + e.Reason
}

// TransportError is a network-level failure: connection refused, timeout,
// DNS resolution, reset. Always retryable.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response from the bridge, or an application-level
// error the bridge reports inside a 2xx envelope. Retryable only for 5xx/429.
type HTTPError struct {
	Endpoint string
	Status   int
	Code     string
	Message  string

	// RetryAfter carries the bridge's Retry-After hint on 429 responses.
	// Zero when absent.
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	msg := fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.Status)
	if e.Code != "" {
		msg += " " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// RetryExhaustedError is surfaced after all retry attempts are consumed.
// The last underlying failure is attached for diagnostics.
type RetryExhaustedError struct {
	Endpoint string
	Attempts int
	LastErr  error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Endpoint, e.Attempts, e.LastErr)
}

func (e *RetryExhaustedError) Unwrap() error { return e.LastErr }

// MalformedResponseError indicates normalization failed on a required field.
// Retrying cannot fix a contract violation, so it is never retried.
type MalformedResponseError struct {
	Field  string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: field %q: %s", e.Field, e.Reason)
}

// errorClass splits failures into the two retry policies.
type errorClass int

const (
	classFatal errorClass = iota
	classRetryable
)

// classify maps an error to its retry class. Transport failures and 5xx/429
// responses are transient; everything else indicates a broken request,
// session, or contract and retrying will not help.
func classify(err error) errorClass {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Status == 429 || httpErr.Status >= 500 {
			return classRetryable
		}
		return classFatal
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return classRetryable
	}
	return classFatal
}

// parseRetryAfter parses a Retry-After header given in seconds.
// Returns 0 if missing or not a positive integer.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

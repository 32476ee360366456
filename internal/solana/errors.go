package solana

import (
	"errors"
	"fmt"
)

// ErrorKind classifies RPC call failures.
type ErrorKind string

// Failure kinds surfaced by the client.
const (
	// KindRateLimited means the endpoint answered HTTP 429. Retried with backoff.
	KindRateLimited ErrorKind = "rate_limited"
	// KindTimeout means the request deadline elapsed. Retried with backoff.
	KindTimeout ErrorKind = "timeout"
	// KindTransport covers connection-level failures and unexpected HTTP
	// statuses. Retried with backoff.
	KindTransport ErrorKind = "transport"
	// KindRPC means the remote returned a JSON-RPC error object. Not retried.
	KindRPC ErrorKind = "rpc_error"
	// KindExhausted means all retry attempts were spent on retryable failures.
	KindExhausted ErrorKind = "exhausted"
)

// Error is a typed RPC call failure.
type Error struct {
	Kind    ErrorKind
	Method  string
	Code    int    // remote error code, set when Kind == KindRPC
	Message string // remote error message, set when Kind == KindRPC
	Err     error  // underlying cause, when any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindRPC:
		return fmt.Sprintf("%s: RPC error %d: %s", e.Method, e.Code, e.Message)
	case KindExhausted:
		return fmt.Sprintf("%s: retries exhausted: %v", e.Method, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Method, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a client Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for the gateway domain.
var (
	ErrRateLimited = errors.New("rate limited")
	ErrBadRequest  = errors.New("bad request")
	ErrNoProvider  = errors.New("no provider available")
)

// ErrorClass tags a ProviderError for the dispatcher's failover decision.
type ErrorClass int

const (
	// ErrClassConfiguration means the provider is not enabled or its API key
	// is missing. Never retried.
	ErrClassConfiguration ErrorClass = iota
	// ErrClassTransport covers connection failures and non-2xx upstream
	// responses. Triggers failover.
	ErrClassTransport
	// ErrClassDecode covers malformed or schema-mismatched provider
	// responses. Triggers failover.
	ErrClassDecode
	// ErrClassGuardrail means the response was rejected by policy.
	// Triggers failover so the next provider gets a fresh chance.
	ErrClassGuardrail
	// ErrClassCancelled means the caller aborted. Never retried.
	ErrClassCancelled
	// ErrClassTimeout means the per-provider deadline expired.
	// Triggers failover.
	ErrClassTimeout
)

// String returns the class name used in stats and log records.
func (c ErrorClass) String() string {
	switch c {
	case ErrClassConfiguration:
		return "configuration"
	case ErrClassTransport:
		return "transport"
	case ErrClassDecode:
		return "decode"
	case ErrClassGuardrail:
		return "guardrail"
	case ErrClassCancelled:
		return "cancelled"
	case ErrClassTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// FailsOver reports whether an error of this class should move the
// dispatcher on to the next enabled provider.
func (c ErrorClass) FailsOver() bool {
	switch c {
	case ErrClassTransport, ErrClassDecode, ErrClassGuardrail, ErrClassTimeout:
		return true
	default:
		return false
	}
}

// ProviderError is the tagged error returned by adapters and consumed by the
// dispatcher's failover state machine. Status is set for non-2xx upstream
// responses.
type ProviderError struct {
	Provider string
	Class    ErrorClass
	Status   int
	Err      error
}

// Error returns a formatted error string including provider and class.
func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s: HTTP %d: %v", e.Provider, e.Class, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Class, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError builds a ProviderError with an explicit class.
func NewProviderError(provider string, class ErrorClass, err error) *ProviderError {
	return &ProviderError{Provider: provider, Class: class, Err: err}
}

// ClassifyTransport wraps a transport-layer error, distinguishing caller
// cancellation from deadline expiry. Cancellation must not trigger failover;
// a timed-out provider should.
func ClassifyTransport(provider string, err error) *ProviderError {
	class := ErrClassTransport
	switch {
	case errors.Is(err, context.Canceled):
		class = ErrClassCancelled
	case errors.Is(err, context.DeadlineExceeded):
		class = ErrClassTimeout
	default:
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			class = ErrClassTimeout
		}
	}
	return &ProviderError{Provider: provider, Class: class, Err: err}
}

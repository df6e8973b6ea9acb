package mock

import (
	"fmt"
	"time"
)

// Behavior is one scripted outcome. The set is closed: only the types in
// this package implement it.
type Behavior interface {
	behavior()
}

// Pass returns Response verbatim.
type Pass struct {
	Response Response
}

// Delay waits for Duration and then resolves Then. A nil Then resolves the
// next entry from the route or default queue.
type Delay struct {
	Duration time.Duration
	Then     Behavior
}

// Reject returns an application-level failure response with Message as the
// body. It is a response, not a transport error, so status-based retry
// policies apply to it. Retryable, when set, overrides the client's
// classifier in checked entrypoints.
type Reject struct {
	Status    int
	Message   string
	Retryable *bool
}

// Drop simulates an aborted connection: a retryable KindConnect error.
type Drop struct{}

// Replay returns the Index-th response previously recorded for the same
// route.
type Replay struct {
	Index int
}

// ConnectError fails the attempt with a KindConnect error built from its
// fields. Status 0 means no status.
type ConnectError struct {
	Message   string
	Status    int
	Retryable bool
}

// TimeoutError fails the attempt with a KindTimeout error.
type TimeoutError struct {
	Message   string
	Status    int
	Retryable bool
}

// TransportError fails the attempt with a generic KindTransport error.
type TransportError struct {
	Message   string
	Status    int
	Retryable bool
}

func (Pass) behavior()           {}
func (Delay) behavior()          {}
func (Reject) behavior()         {}
func (Drop) behavior()           {}
func (Replay) behavior()         {}
func (ConnectError) behavior()   {}
func (TimeoutError) behavior()   {}
func (TransportError) behavior() {}

// NewConnectError creates a ConnectError behavior.
func NewConnectError(message string, status int, retryable bool) ConnectError {
	return ConnectError{Message: message, Status: status, Retryable: retryable}
}

// NewTimeoutError creates a TimeoutError behavior.
func NewTimeoutError(message string, status int, retryable bool) TimeoutError {
	return TimeoutError{Message: message, Status: status, Retryable: retryable}
}

// NewTransportError creates a TransportError behavior.
func NewTransportError(message string, status int, retryable bool) TransportError {
	return TransportError{Message: message, Status: status, Retryable: retryable}
}

// NewReject creates a Reject behavior without a retryable override.
func NewReject(status int, message string) Reject {
	return Reject{Status: status, Message: message}
}

// WithRetryable returns a copy that pins the retryable flag reported by
// checked entrypoints.
func (r Reject) WithRetryable(retryable bool) Reject {
	r.Retryable = &retryable
	return r
}

// BehaviorName returns a short label for b, used in logs and snapshots.
func BehaviorName(b Behavior) string {
	switch v := b.(type) {
	case nil:
		return "none"
	case Pass:
		return fmt.Sprintf("pass(%d)", v.Response.Status)
	case Delay:
		return fmt.Sprintf("delay(%s)", v.Duration)
	case Reject:
		return fmt.Sprintf("reject(%d)", v.Status)
	case Drop:
		return "drop"
	case Replay:
		return fmt.Sprintf("replay(%d)", v.Index)
	case ConnectError:
		return "connect_error"
	case TimeoutError:
		return "timeout_error"
	case TransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("%T", b)
	}
}

package rest

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed REST call.
type Kind int

const (
	// KindConnect means an attempt could not be established.
	KindConnect Kind = iota + 1
	// KindTimeout means an attempt exceeded its deadline.
	KindTimeout
	// KindRejected means a well-formed response carried a failure status.
	KindRejected
	// KindTransport is a generic attempt failure.
	KindTransport
	// KindDecode means the body could not be parsed into the requested type.
	KindDecode
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindConnect:
		return "connect"
	case KindTimeout:
		return "timeout"
	case KindRejected:
		return "rejected"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the single failure type returned by Client and transports.
// Retryability is fixed by whichever layer built the error, since the same
// kind can be retryable or not depending on context.
type Error struct {
	kind      Kind
	message   string
	status    int
	retryable bool
	body      []byte
	cause     error
}

// NewError creates an Error. A status of 0 means the error carries no status.
func NewError(kind Kind, message string, status int, retryable bool) *Error {
	return &Error{kind: kind, message: message, status: status, retryable: retryable}
}

// NewConnectError creates a KindConnect error.
func NewConnectError(message string, status int, retryable bool) *Error {
	return NewError(KindConnect, message, status, retryable)
}

// NewTimeoutError creates a KindTimeout error.
func NewTimeoutError(message string, status int, retryable bool) *Error {
	return NewError(KindTimeout, message, status, retryable)
}

// NewTransportError creates a KindTransport error.
func NewTransportError(message string, status int, retryable bool) *Error {
	return NewError(KindTransport, message, status, retryable)
}

// NewRejectedError creates a KindRejected error for a response with a failure
// status. The body is kept for callers and becomes the message when non-empty.
func NewRejectedError(status int, body []byte, retryable bool) *Error {
	message := string(body)
	if message == "" {
		message = fmt.Sprintf("request rejected with status %d", status)
	}
	return &Error{kind: KindRejected, message: message, status: status, retryable: retryable, body: body}
}

// NewDecodeError creates a non-retryable KindDecode error wrapping cause.
func NewDecodeError(cause error) *Error {
	message := "failed to decode response body"
	if cause != nil {
		message = cause.Error()
	}
	return &Error{kind: KindDecode, message: message, cause: cause}
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

// WithRetryable returns a copy of e with the retryable flag replaced.
func (e *Error) WithRetryable(retryable bool) *Error {
	c := *e
	c.retryable = retryable
	return &c
}

// Kind returns the failure class.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the human-readable message.
func (e *Error) Message() string { return e.message }

// Status returns the HTTP status attached to the error, if any.
func (e *Error) Status() (int, bool) { return e.status, e.status > 0 }

// IsRetryable reports whether the producing layer marked the failure as
// safe to retry.
func (e *Error) IsRetryable() bool { return e.retryable }

// Body returns the response body of a rejected call.
func (e *Error) Body() []byte { return e.body }

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("rest ")
	b.WriteString(e.kind.String())
	b.WriteString(" error")
	if e.status > 0 {
		fmt.Fprintf(&b, " (status %d)", e.status)
	}
	if e.retryable {
		b.WriteString(" [retryable]")
	}
	if e.message != "" {
		b.WriteString(": ")
		b.WriteString(e.message)
	}
	if e.cause != nil && e.cause.Error() != e.message {
		b.WriteString(": ")
		b.WriteString(e.cause.Error())
	}
	return b.String()
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var restErr *Error
	if errors.As(err, &restErr) {
		return restErr, true
	}
	return nil, false
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	restErr, ok := AsError(err)
	return ok && restErr.kind == kind
}

// IsRetryable reports whether err is a *Error marked retryable.
func IsRetryable(err error) bool {
	restErr, ok := AsError(err)
	return ok && restErr.retryable
}

// IsSuccessStatus reports whether statusCode is in the 2xx range.
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// IsRetryableStatus reports whether statusCode is in the classic retryable
// set: 429 and every 5xx.
func IsRetryableStatus(statusCode int) bool {
	return statusCode == 429 || (statusCode >= 500 && statusCode < 600)
}

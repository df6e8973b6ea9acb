package rest

import "context"

// Transport performs exactly one attempt per Send. Implementations must not
// retry; the Client owns retries. Failures should be *Error values so the
// Client can read their retryable flag. Any other error is treated as a
// setup problem and returned to the caller untouched.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, req Request) (*Response, error)

// Send calls f(ctx, req).
func (f TransportFunc) Send(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

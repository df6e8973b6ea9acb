// Package httpclient is the net/http implementation of rest.Transport.
//
// A transport performs exactly one HTTP round trip per Send call. Retries,
// per-attempt deadlines and status checks belong to rest.Client.
package httpclient

import (
	"context"
	nethttp "net/http"
	"time"

	"github.com/gaborage/restbricks/trace"
)

const (
	// HeaderXRequestID is the standard header name for request tracing
	HeaderXRequestID = trace.HeaderXRequestID
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = trace.HeaderTraceParent
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = trace.HeaderTraceState
)

// BasicAuth contains basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// RequestInterceptor is called before sending the request
type RequestInterceptor func(ctx context.Context, req *nethttp.Request) error

// ResponseInterceptor is called after receiving the response, before the
// body is read
type ResponseInterceptor func(ctx context.Context, req *nethttp.Request, resp *nethttp.Response) error

// Config holds the transport configuration
type Config struct {
	// Timeout bounds a whole round trip at the http.Client level. rest.Client
	// applies its own, usually shorter, per-attempt deadline on top.
	Timeout              time.Duration
	RequestInterceptors  []RequestInterceptor
	ResponseInterceptors []ResponseInterceptor
	BasicAuth            *BasicAuth
	// DefaultHeaders are sent unless the request sets the same header
	DefaultHeaders map[string]string
	// LogPayloads enables debug-level logging of headers and body payloads
	LogPayloads bool
	// MaxPayloadLogBytes caps the number of body bytes logged when LogPayloads is enabled
	MaxPayloadLogBytes int
	// TraceIDHeader configures the header name used for request ID propagation (default: X-Request-ID)
	TraceIDHeader string
	// NewTraceID generates a new request ID when none is present (default: uuid)
	NewTraceID func() string
	// EnableW3CTrace enables W3C Trace Context (traceparent/tracestate) propagation and generation
	EnableW3CTrace bool
	// EnableTracing wraps the round tripper with otelhttp spans and metrics
	EnableTracing bool
}

// WithTraceID adds a request ID to the context for header propagation
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return trace.WithRequestID(ctx, traceID)
}

// TraceIDFromContext returns a request ID from context if present
func TraceIDFromContext(ctx context.Context) (string, bool) { return trace.RequestIDFromContext(ctx) }

// EnsureTraceID returns an existing request ID from context or generates a new one
func EnsureTraceID(ctx context.Context) string { return trace.EnsureRequestID(ctx) }

// WithTraceParent adds a W3C traceparent value to the context
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return trace.WithTraceParent(ctx, traceParent)
}

// WithTraceState adds a W3C tracestate value to the context
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return trace.WithTraceState(ctx, traceState)
}

// NewTraceIDInterceptor creates a request interceptor that adds the
// X-Request-ID header when the request does not carry one
func NewTraceIDInterceptor() RequestInterceptor {
	return NewTraceIDInterceptorFor(HeaderXRequestID)
}

// NewTraceIDInterceptorFor creates an interceptor that uses a custom header name
func NewTraceIDInterceptorFor(header string) RequestInterceptor {
	if header == "" {
		header = HeaderXRequestID
	}
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(header) == "" {
			req.Header.Set(header, EnsureTraceID(ctx))
		}
		return nil
	}
}

// NewW3CTraceInterceptor sets traceparent (and tracestate when the context
// has one) unless the request already carries a traceparent. The value
// comes from the context, then the active span, then a fresh one.
func NewW3CTraceInterceptor() RequestInterceptor {
	return func(ctx context.Context, req *nethttp.Request) error {
		if req.Header.Get(HeaderTraceParent) != "" {
			return nil
		}
		req.Header.Set(HeaderTraceParent, trace.ResolveTraceParent(ctx))
		if ts, ok := trace.TraceStateFromContext(ctx); ok && req.Header.Get(HeaderTraceState) == "" {
			req.Header.Set(HeaderTraceState, ts)
		}
		return nil
	}
}

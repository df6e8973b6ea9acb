// Package trace carries request correlation values for outbound REST calls:
// a request ID header value and W3C trace context (traceparent/tracestate).
package trace

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	traceParentKey contextKey = "traceparent"
	traceStateKey  contextKey = "tracestate"

	// HeaderXRequestID is the default header used to propagate request IDs
	HeaderXRequestID = "X-Request-ID"
	// HeaderTraceParent is the W3C trace context header name
	HeaderTraceParent = "traceparent"
	// HeaderTraceState is the W3C trace context "tracestate" header name
	HeaderTraceState = "tracestate"
)

// WithRequestID stores a request ID in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the request ID stored in ctx, if non-empty.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		return id, true
	}
	return "", false
}

// EnsureRequestID returns the request ID from ctx or a fresh UUID.
func EnsureRequestID(ctx context.Context) string {
	if id, ok := RequestIDFromContext(ctx); ok {
		return id
	}
	return uuid.New().String()
}

// WithTraceParent stores a traceparent value in ctx.
func WithTraceParent(ctx context.Context, traceParent string) context.Context {
	return context.WithValue(ctx, traceParentKey, traceParent)
}

// TraceParentFromContext returns an explicit traceparent stored in ctx.
func TraceParentFromContext(ctx context.Context) (string, bool) {
	if tp, ok := ctx.Value(traceParentKey).(string); ok && tp != "" {
		return tp, true
	}
	return "", false
}

// WithTraceState stores a tracestate value in ctx.
func WithTraceState(ctx context.Context, traceState string) context.Context {
	return context.WithValue(ctx, traceStateKey, traceState)
}

// TraceStateFromContext returns a tracestate stored in ctx.
func TraceStateFromContext(ctx context.Context) (string, bool) {
	if ts, ok := ctx.Value(traceStateKey).(string); ok && ts != "" {
		return ts, true
	}
	return "", false
}

// ResolveTraceParent picks the traceparent for an outbound call: an explicit
// context value first, then the active OpenTelemetry span, then a new one.
func ResolveTraceParent(ctx context.Context) string {
	if tp, ok := TraceParentFromContext(ctx); ok {
		return tp
	}
	if sc := oteltrace.SpanContextFromContext(ctx); sc.IsValid() {
		flags := "00"
		if sc.IsSampled() {
			flags = "01"
		}
		return "00-" + sc.TraceID().String() + "-" + sc.SpanID().String() + "-" + flags
	}
	return NewTraceParent()
}

// NewTraceParent creates a sampled W3C traceparent with random IDs.
// Format: version(2)-trace-id(32)-span-id(16)-flags(2).
func NewTraceParent() string {
	var traceID oteltrace.TraceID
	var spanID oteltrace.SpanID
	_, _ = crand.Read(traceID[:])
	_, _ = crand.Read(spanID[:])
	// all-zero IDs are invalid per W3C
	if !traceID.IsValid() {
		traceID[len(traceID)-1] = 0x01
	}
	if !spanID.IsValid() {
		spanID[len(spanID)-1] = 0x01
	}
	return "00-" + hex.EncodeToString(traceID[:]) + "-" + hex.EncodeToString(spanID[:]) + "-01"
}

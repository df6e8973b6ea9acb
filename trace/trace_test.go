package trace

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const testTraceParent = "00-0123456789abcdef0123456789abcdef-0123456789abcdef-01"

var traceParentPattern = regexp.MustCompile(`^00-[0-9a-f]{32}-[0-9a-f]{16}-0[01]$`)

func TestHeaderConstants(t *testing.T) {
	assert.Equal(t, "X-Request-ID", HeaderXRequestID)
	assert.Equal(t, "traceparent", HeaderTraceParent)
	assert.Equal(t, "tracestate", HeaderTraceState)
}

func TestEnsureRequestID(t *testing.T) {
	t.Run("uses existing", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "ping-42")
		assert.Equal(t, "ping-42", EnsureRequestID(ctx))
	})

	t.Run("generates uuid when missing", func(t *testing.T) {
		got := EnsureRequestID(context.Background())
		assert.Regexp(t, `^[a-f0-9\-]{36}$`, strings.ToLower(got))
	})

	t.Run("empty value is treated as missing", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "")
		_, ok := RequestIDFromContext(ctx)
		assert.False(t, ok)
	})
}

func TestTraceContextRoundTrip(t *testing.T) {
	ctx := WithTraceParent(context.Background(), testTraceParent)
	ctx = WithTraceState(ctx, "vendor=a:b")

	tp, ok := TraceParentFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, testTraceParent, tp)

	ts, ok := TraceStateFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "vendor=a:b", ts)
}

func TestResolveTraceParent(t *testing.T) {
	t.Run("explicit context value wins", func(t *testing.T) {
		ctx := WithTraceParent(context.Background(), testTraceParent)
		assert.Equal(t, testTraceParent, ResolveTraceParent(ctx))
	})

	t.Run("derived from active span", func(t *testing.T) {
		traceID, err := oteltrace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		require.NoError(t, err)
		spanID, err := oteltrace.SpanIDFromHex("00f067aa0ba902b7")
		require.NoError(t, err)
		sc := oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: oteltrace.FlagsSampled,
		})
		ctx := oteltrace.ContextWithSpanContext(context.Background(), sc)

		assert.Equal(t, "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01", ResolveTraceParent(ctx))
	})

	t.Run("generated when nothing is present", func(t *testing.T) {
		assert.Regexp(t, traceParentPattern, ResolveTraceParent(context.Background()))
	})
}

func TestNewTraceParentFormat(t *testing.T) {
	first := NewTraceParent()
	second := NewTraceParent()

	assert.Regexp(t, traceParentPattern, first)
	assert.NotEqual(t, first, second)
}

// Package tracking records OpenTelemetry metrics for REST client attempts
// and retries. Instruments are created lazily from the global meter
// provider, so nothing is exported unless the host process installs one.
package tracking

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	restMeterName = "restbricks/rest"

	// Histogram in seconds, one data point per transport attempt
	metricAttemptDuration = "http.client.request.duration"
	metricRetries         = "rest.client.retries"
	metricOutcomes        = "rest.client.outcomes"

	attrMethod     = "http.request.method"
	attrStatusCode = "http.response.status_code"
	attrErrorType  = "error.type"
	attrReason     = "retry.reason"
	attrOutcome    = "rest.outcome"
	attrAttempts   = "rest.attempts"
)

// Retry reasons
const (
	ReasonStatus    = "status"
	ReasonTransport = "transport"
)

// Terminal outcomes of one Execute call
const (
	OutcomeResponse = "response"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

var (
	restMeter   metric.Meter
	meterOnce   sync.Once
	meterInitMu sync.Mutex

	attemptDuration metric.Float64Histogram
	retryCounter    metric.Int64Counter
	outcomeCounter  metric.Int64Counter
)

func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize REST metric %s: %v\n", metricName, err)
	}
}

func initRestMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if restMeter != nil {
		return
	}

	restMeter = otel.Meter(restMeterName)

	var err error
	attemptDuration, err = restMeter.Float64Histogram(
		metricAttemptDuration,
		metric.WithDescription("Duration of individual REST transport attempts"),
		metric.WithUnit("s"),
	)
	logMetricError(metricAttemptDuration, err)

	retryCounter, err = restMeter.Int64Counter(
		metricRetries,
		metric.WithDescription("Number of retries scheduled by the REST client"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(metricRetries, err)

	outcomeCounter, err = restMeter.Int64Counter(
		metricOutcomes,
		metric.WithDescription("Terminal outcomes of REST client executions"),
		metric.WithUnit("{call}"),
	)
	logMetricError(metricOutcomes, err)
}

func ensureRestMeterInitialized() {
	meterOnce.Do(initRestMeter)
}

// RecordAttempt records the duration of one transport attempt. status is 0
// when the attempt failed without a response; errorType is empty on success.
func RecordAttempt(ctx context.Context, method string, status int, errorType string, duration time.Duration) {
	ensureRestMeterInitialized()
	if attemptDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String(attrMethod, method)}
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrStatusCode, status))
	}
	if errorType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errorType))
	}

	attemptDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRetry counts one scheduled retry.
func RecordRetry(ctx context.Context, method, reason string, status int) {
	ensureRestMeterInitialized()
	if retryCounter == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrReason, reason),
	}
	if status > 0 {
		attrs = append(attrs, attribute.Int(attrStatusCode, status))
	}
	retryCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordOutcome counts the terminal outcome of one Execute call.
func RecordOutcome(ctx context.Context, method, outcome string, attempts int) {
	ensureRestMeterInitialized()
	if outcomeCounter == nil {
		return
	}

	outcomeCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrOutcome, outcome),
		attribute.Int(attrAttempts, attempts),
	))
}

// ResetForTesting drops the cached meter so the next record call picks up
// the current global meter provider.
func ResetForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	restMeter = nil
	attemptDuration = nil
	retryCounter = nil
	outcomeCounter = nil
	meterOnce = sync.Once{}
}

// Package tracking records OpenTelemetry metrics for outgoing gateway calls.
// Instruments are created lazily from the global meter provider.
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
	// MeterName is the instrumentation scope of the client metrics
	MeterName = "qlik-request/http-client"

	MetricRequestDuration = "http.client.request.duration" // Histogram in seconds
	MetricRetries         = "qlik.client.retries"          // Counter

	AttrHTTPRequestMethod  = "http.request.method"
	AttrHTTPResponseStatus = "http.response.status_code"
	AttrServerAddress      = "server.address"
	AttrURLScheme          = "url.scheme"
	AttrErrorType          = "error.type"
)

// Request duration buckets recommended by the OTel HTTP semantic conventions
var durationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

var (
	meterOnce   sync.Once
	meterInitMu sync.Mutex

	durationHistogram metric.Float64Histogram
	retryCounter      metric.Int64Counter
)

// logMetricError reports instrument creation failures; metrics never break a call.
func logMetricError(name string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize client metric %s: %v\n", name, err)
	}
}

func initMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	meter := otel.Meter(MeterName)

	var err error
	durationHistogram, err = meter.Float64Histogram(
		MetricRequestDuration,
		metric.WithDescription("Duration of gateway requests"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	logMetricError(MetricRequestDuration, err)

	retryCounter, err = meter.Int64Counter(
		MetricRetries,
		metric.WithDescription("Number of re-issued gateway requests"),
		metric.WithUnit("{retry}"),
	)
	logMetricError(MetricRetries, err)
}

func ensureMeter() {
	meterOnce.Do(initMeter)
}

// Request describes one finished attempt
type Request struct {
	Method     string
	Scheme     string
	Host       string
	StatusCode int    // 0 when no response was received
	ErrorType  string // empty on success
	Duration   time.Duration
}

// RecordRequest records the duration of one attempt.
func RecordRequest(ctx context.Context, r Request) {
	ensureMeter()
	if durationHistogram == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrHTTPRequestMethod, r.Method),
		attribute.String(AttrURLScheme, r.Scheme),
		attribute.String(AttrServerAddress, r.Host),
	}
	if r.StatusCode > 0 {
		attrs = append(attrs, attribute.Int(AttrHTTPResponseStatus, r.StatusCode))
	}
	if r.ErrorType != "" {
		attrs = append(attrs, attribute.String(AttrErrorType, r.ErrorType))
	}
	durationHistogram.Record(ctx, r.Duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRetry counts one re-issued request.
func RecordRetry(ctx context.Context, method, host string) {
	ensureMeter()
	if retryCounter == nil {
		return
	}
	retryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrHTTPRequestMethod, method),
		attribute.String(AttrServerAddress, host),
	))
}

// ResetForTesting drops the instruments so the next call binds to the current global provider.
func ResetForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	durationHistogram = nil
	retryCounter = nil
	meterOnce = sync.Once{}
}

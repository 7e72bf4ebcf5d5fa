package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"hq/internal/async"
)

// MetricsCollector manages all metrics for the queue service.
type MetricsCollector struct {
	meter metric.Meter

	// Message lifecycle metrics
	messagesEnqueued  metric.Int64Counter
	messagesReceived  metric.Int64Counter
	messagesCompleted metric.Int64Counter
	messagesFailed    metric.Int64Counter

	// Sweeper metrics
	leasesExpired metric.Int64Counter
	messagesSwept metric.Int64Counter
	sweepDuration metric.Float64Histogram

	// HTTP metrics
	httpRequests metric.Int64Counter
	httpLatency  metric.Float64Histogram

	// Server for Prometheus scraping
	prometheusServer *http.Server
}

// MetricsConfig configures the metrics collector.
type MetricsConfig struct {
	Enabled        bool `yaml:"enabled"`
	PrometheusPort int  `yaml:"prometheus_port"`
}

// NewMetricsCollector creates a new metrics collector. When disabled it
// returns an inert collector whose record methods are no-ops.
func NewMetricsCollector(config MetricsConfig) (*MetricsCollector, error) {
	if !config.Enabled {
		return &MetricsCollector{}, nil
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(provider)

	meter := provider.Meter("hq")

	collector := &MetricsCollector{meter: meter}

	collector.messagesEnqueued, err = meter.Int64Counter(
		"hq.messages.enqueued.total",
		metric.WithDescription("Total number of messages enqueued"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create enqueued counter: %w", err)
	}

	collector.messagesReceived, err = meter.Int64Counter(
		"hq.messages.received.total",
		metric.WithDescription("Total number of messages leased to consumers"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create received counter: %w", err)
	}

	collector.messagesCompleted, err = meter.Int64Counter(
		"hq.messages.completed.total",
		metric.WithDescription("Total number of messages completed"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create completed counter: %w", err)
	}

	collector.messagesFailed, err = meter.Int64Counter(
		"hq.messages.failed.total",
		metric.WithDescription("Total number of messages moved to the failed state"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failed counter: %w", err)
	}

	collector.leasesExpired, err = meter.Int64Counter(
		"hq.leases.expired.total",
		metric.WithDescription("Total number of leases reclaimed by the sweeper"),
		metric.WithUnit("{lease}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create leases counter: %w", err)
	}

	collector.messagesSwept, err = meter.Int64Counter(
		"hq.messages.retired.total",
		metric.WithDescription("Total number of exhausted messages retired by the sweeper"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retired counter: %w", err)
	}

	collector.sweepDuration, err = meter.Float64Histogram(
		"hq.sweep.duration",
		metric.WithDescription("Duration of one sweep pass in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep histogram: %w", err)
	}

	collector.httpRequests, err = meter.Int64Counter(
		"hq.http.requests.total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http counter: %w", err)
	}

	collector.httpLatency, err = meter.Float64Histogram(
		"hq.http.latency",
		metric.WithDescription("HTTP request latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http histogram: %w", err)
	}

	return collector, nil
}

// StartPrometheusServer serves /metrics for scraping on the configured port.
// The scrape endpoint is best-effort; the queue keeps serving without it.
func (m *MetricsCollector) StartPrometheusServer(port int, logger async.PanicLogger) error {
	if m == nil || m.meter == nil {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promclient.Handler())

	m.prometheusServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	async.Go(logger, "observability.prometheus", func() {
		_ = m.prometheusServer.ListenAndServe()
	})

	return nil
}

// Shutdown stops the Prometheus scrape server.
func (m *MetricsCollector) Shutdown(ctx context.Context) error {
	if m == nil || m.prometheusServer == nil {
		return nil
	}
	return m.prometheusServer.Shutdown(ctx)
}

// RecordEnqueue counts one enqueued message.
func (m *MetricsCollector) RecordEnqueue(ctx context.Context, queue string) {
	if m == nil || m.messagesEnqueued == nil {
		return
	}
	m.messagesEnqueued.Add(ctx, 1, metric.WithAttributes(attribute.String("queue", queue)))
}

// RecordReceive counts one delivered lease.
func (m *MetricsCollector) RecordReceive(ctx context.Context, queue string) {
	if m == nil || m.messagesReceived == nil {
		return
	}
	m.messagesReceived.Add(ctx, 1, metric.WithAttributes(attribute.String("queue", queue)))
}

// RecordComplete counts one completed message.
func (m *MetricsCollector) RecordComplete(ctx context.Context) {
	if m == nil || m.messagesCompleted == nil {
		return
	}
	m.messagesCompleted.Add(ctx, 1)
}

// RecordFail counts one explicitly failed message.
func (m *MetricsCollector) RecordFail(ctx context.Context) {
	if m == nil || m.messagesFailed == nil {
		return
	}
	m.messagesFailed.Add(ctx, 1)
}

// RecordSweep records the outcome of one sweep pass.
func (m *MetricsCollector) RecordSweep(ctx context.Context, unlocked, retired int64, elapsed time.Duration) {
	if m == nil || m.leasesExpired == nil {
		return
	}
	m.leasesExpired.Add(ctx, unlocked)
	m.messagesSwept.Add(ctx, retired)
	m.sweepDuration.Record(ctx, elapsed.Seconds())
}

// RecordHTTPRequest records one handled request with its route template.
func (m *MetricsCollector) RecordHTTPRequest(ctx context.Context, method, route string, status int, elapsed time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpLatency.Record(ctx, elapsed.Seconds(), attrs)
}

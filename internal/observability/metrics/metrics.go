package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes monetization instruments.
type Metrics struct {
	pricesCreated     metric.Int64Counter
	pricesArchived    metric.Int64Counter
	checkouts         metric.Int64Counter
	cancellations     metric.Int64Counter
	usageReports      metric.Int64Counter
	creditGranted     metric.Int64Counter
	creditApplied     metric.Int64Counter
	providerFailures  metric.Int64Counter
	operationDuration metric.Float64Histogram
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the monetization instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "monetization"
	}
	meter := provider.Meter(name)

	pricesCreated, err := meter.Int64Counter("monetization_prices_created_total")
	if err != nil {
		return nil, err
	}
	pricesArchived, err := meter.Int64Counter("monetization_prices_archived_total")
	if err != nil {
		return nil, err
	}
	checkouts, err := meter.Int64Counter("monetization_checkout_sessions_total")
	if err != nil {
		return nil, err
	}
	cancellations, err := meter.Int64Counter("monetization_subscription_cancellations_total")
	if err != nil {
		return nil, err
	}
	usageReports, err := meter.Int64Counter("monetization_usage_reports_total")
	if err != nil {
		return nil, err
	}
	creditGranted, err := meter.Int64Counter("monetization_credit_granted_total",
		metric.WithDescription("Credit granted in the smallest currency unit"))
	if err != nil {
		return nil, err
	}
	creditApplied, err := meter.Int64Counter("monetization_credit_applied_total",
		metric.WithDescription("Credit burned down against invoices in the smallest currency unit"))
	if err != nil {
		return nil, err
	}
	providerFailures, err := meter.Int64Counter("monetization_provider_failures_total")
	if err != nil {
		return nil, err
	}
	operationDuration, err := meter.Float64Histogram("monetization_operation_duration_seconds",
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		pricesCreated:     pricesCreated,
		pricesArchived:    pricesArchived,
		checkouts:         checkouts,
		cancellations:     cancellations,
		usageReports:      usageReports,
		creditGranted:     creditGranted,
		creditApplied:     creditApplied,
		providerFailures:  providerFailures,
		operationDuration: operationDuration,
	}, nil
}

// NewNoop returns instruments backed by the noop provider.
func NewNoop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

func (m *Metrics) RecordPriceCreated(ctx context.Context, revenueModel, currency string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("revenue_model", strings.TrimSpace(revenueModel)),
		attribute.String("currency", strings.TrimSpace(currency)),
	)
	m.pricesCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPriceArchived(ctx context.Context, revenueModel string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("revenue_model", strings.TrimSpace(revenueModel)))
	m.pricesArchived.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCheckout counts checkout session outcomes (created, reused, rejected).
func (m *Metrics) RecordCheckout(ctx context.Context, mode, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("mode", strings.TrimSpace(mode)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.checkouts.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCancellation(ctx context.Context, immediately bool) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.Bool("immediately", immediately))
	m.cancellations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordUsageReport(ctx context.Context, action, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("action", strings.TrimSpace(action)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.usageReports.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCreditGranted(ctx context.Context, currency string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("currency", strings.TrimSpace(currency)))
	m.creditGranted.Add(ctx, amount, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordCreditApplied(ctx context.Context, currency string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("currency", strings.TrimSpace(currency)))
	m.creditApplied.Add(ctx, amount, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordProviderFailure(ctx context.Context, provider, operation, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("provider", strings.TrimSpace(provider)),
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("kind", strings.TrimSpace(kind)),
	)
	m.providerFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordOperation(ctx context.Context, operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("operation", strings.TrimSpace(operation)),
		attribute.String("outcome", strings.TrimSpace(outcome)),
	)
	m.operationDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"provider":      {},
	"operation":     {},
	"outcome":       {},
	"kind":          {},
	"mode":          {},
	"action":        {},
	"currency":      {},
	"revenue_model": {},
	"immediately":   {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}

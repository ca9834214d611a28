package metrics

import (
	"context"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("provider", "local"),
		attribute.String("customer_id", "cus_123"),
		attribute.String("currency", "USD"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "provider" && attrs[1].Key != "provider" {
		t.Fatalf("expected provider to be retained")
	}
	if attrs[0].Key != "currency" && attrs[1].Key != "currency" {
		t.Fatalf("expected currency to be retained")
	}
}

func TestMetricsRecordToReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	m, err := New(Config{ServiceName: "monetization-test"}, provider)
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}

	ctx := context.Background()
	m.RecordCreditGranted(ctx, "USD", 500)
	m.RecordCreditGranted(ctx, "USD", 0)
	m.RecordProviderFailure(ctx, "local", "CreatePrice", "network")
	m.RecordOperation(ctx, "CreatePrice", "ok", 15*time.Millisecond)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	found := map[string]bool{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			found[metric.Name] = true
			if metric.Name != "monetization_credit_granted_total" {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			if !ok || len(sum.DataPoints) != 1 || sum.DataPoints[0].Value != 500 {
				t.Fatalf("unexpected credit granted data: %+v", metric.Data)
			}
		}
	}
	for _, name := range []string{
		"monetization_credit_granted_total",
		"monetization_provider_failures_total",
		"monetization_operation_duration_seconds",
	} {
		if !found[name] {
			t.Fatalf("expected %s to be exported", name)
		}
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.RecordPriceCreated(context.Background(), "RECURRING", "USD")
	m.RecordCheckout(context.Background(), "SUBSCRIPTION", "created")
	_ = NewNoop()
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/monetization/internal/observability/metrics"
	"github.com/smallbiznis/monetization/internal/providers/providertest"
	usagedomain "github.com/smallbiznis/monetization/internal/usage/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	svc usagedomain.Service
	env *providertest.Env
	rec *providertest.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	env := providertest.NewLocal(t)
	rec := providertest.NewRecorder(env.Local)
	svc := New(Params{
		Log:           zap.NewNop(),
		Clock:         env.Clock,
		Subscriptions: rec,
		Prices:        rec,
		Usage:         rec,
		Metrics:       metrics.NewNoop(),
	})
	return &harness{svc: svc, env: env, rec: rec}
}

func (h *harness) meteredSubscription(t *testing.T, lookupKeys ...string) (*domain.Subscription, []*domain.Price) {
	t.Helper()
	customer := h.env.Customer(t)
	product := h.env.Product(t, "api")
	var prices []*domain.Price
	var ids []string
	for _, key := range lookupKeys {
		price := h.env.MeteredPrice(t, product.IntegrationID, "USD", key)
		prices = append(prices, price)
		ids = append(ids, price.IntegrationID)
	}
	sub := h.env.Subscribe(t, customer.IntegrationID, product.IntegrationID, "USD", ids...)
	return sub, prices
}

func at(offset time.Duration) int64 {
	return providertest.Start.Add(offset).Unix()
}

func TestReportIncrementsAccumulate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sub, prices := h.meteredSubscription(t, "api_calls")

	first, err := h.svc.ReportMeteredUsage(ctx, usagedomain.UsageRequest{SubscriptionID: sub.IntegrationID, Quantity: 3, Timestamp: at(time.Hour)})
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, prices[0].IntegrationID, first.PriceIntegrationID)
	assert.Equal(t, domain.UsageActionIncrement, first.Action)

	_, err = h.svc.ReportMeteredUsage(ctx, usagedomain.UsageRequest{SubscriptionID: sub.IntegrationID, Quantity: 4, Timestamp: at(2 * time.Hour)})
	require.NoError(t, err)

	total, err := h.svc.GetMeteredUsageTotal(ctx, sub.IntegrationID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total.Total)
	assert.Equal(t, sub.CurrentPeriodStart, total.PeriodStart)
	assert.Equal(t, sub.CurrentPeriodEnd, total.PeriodEnd)
}

func TestRetriedReportIsCountedOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sub, _ := h.meteredSubscription(t, "api_calls")
	req := usagedomain.UsageRequest{SubscriptionID: sub.IntegrationID, Quantity: 5, Timestamp: at(time.Hour)}

	first, err := h.svc.ReportMeteredUsage(ctx, req)
	require.NoError(t, err)
	h.env.Clock.Advance(2 * time.Second)
	second, err := h.svc.ReportMeteredUsage(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.UsageEventID, second.UsageEventID)

	total, err := h.svc.GetMeteredUsageTotal(ctx, sub.IntegrationID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total.Total)
}

func TestSetReplacesRunningTotal(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sub, _ := h.meteredSubscription(t, "seats")

	for _, req := range []usagedomain.UsageRequest{
		{Quantity: 8, Timestamp: at(time.Hour)},
		{Quantity: 10, Timestamp: at(2 * time.Hour), SetInsteadOfIncrement: true},
		{Quantity: 2, Timestamp: at(3 * time.Hour)},
	} {
		req.SubscriptionID = sub.IntegrationID
		_, err := h.svc.ReportMeteredUsage(ctx, req)
		require.NoError(t, err)
	}

	total, err := h.svc.GetMeteredUsageTotal(ctx, sub.IntegrationID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(12), total.Total)
}

func TestReportsThatAreDropped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sub, _ := h.meteredSubscription(t, "api_calls")

	report, err := h.svc.ReportMeteredUsage(ctx, usagedomain.UsageRequest{SubscriptionID: sub.IntegrationID, Quantity: 1, Timestamp: at(-time.Hour)})
	require.NoError(t, err)
	assert.Nil(t, report)

	report, err = h.svc.ReportMeteredUsage(ctx, usagedomain.UsageRequest{SubscriptionID: sub.IntegrationID, Quantity: 1, Timestamp: sub.CurrentPeriodEnd + 1})
	require.NoError(t, err)
	assert.Nil(t, report)

	_, err = h.svc.ReportMeteredUsage(ctx, usagedomain.UsageRequest{SubscriptionID: sub.IntegrationID, Quantity: -1, Timestamp: at(time.Hour)})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Zero(t, h.rec.Calls("RecordUsage"))

	_, err = h.env.Local.CancelSubscriptionNow(ctx, sub.IntegrationID)
	require.NoError(t, err)
	report, err = h.svc.ReportMeteredUsage(ctx, usagedomain.UsageRequest{SubscriptionID: sub.IntegrationID, Quantity: 1, Timestamp: at(0)})
	require.NoError(t, err)
	assert.Nil(t, report)
	assert.Zero(t, h.rec.Calls("RecordUsage"))
}

func TestMissingTimestampIsRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sub, _ := h.meteredSubscription(t, "api_calls")

	for i := 0; i < 2; i++ {
		_, err := h.svc.ReportMeteredUsage(ctx, usagedomain.UsageRequest{SubscriptionID: sub.IntegrationID, Quantity: 5})
		assert.ErrorIs(t, err, domain.ErrInvalidTimestamp)
		assert.True(t, domain.IsUsageError(err))
		h.env.Clock.Advance(2 * time.Second)
	}
	assert.Zero(t, h.rec.Calls("RecordUsage"))

	total, err := h.svc.GetMeteredUsageTotal(ctx, sub.IntegrationID, nil)
	require.NoError(t, err)
	assert.Zero(t, total.Total)
}

func TestAttributionAcrossMeteredPrices(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sub, prices := h.meteredSubscription(t, "api_calls", "storage_gb")

	_, err := h.svc.ReportMeteredUsage(ctx, usagedomain.UsageRequest{SubscriptionID: sub.IntegrationID, Quantity: 1, Timestamp: at(time.Hour)})
	assert.ErrorIs(t, err, domain.ErrAmbiguousUsage)

	key := "storage_gb"
	report, err := h.svc.ReportMeteredUsage(ctx, usagedomain.UsageRequest{SubscriptionID: sub.IntegrationID, Quantity: 6, Timestamp: at(time.Hour), LookupKey: &key})
	require.NoError(t, err)
	assert.Equal(t, prices[1].IntegrationID, report.PriceIntegrationID)

	total, err := h.svc.GetMeteredUsageTotal(ctx, sub.IntegrationID, &key)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total.Total)

	missing := "bandwidth"
	_, err = h.svc.ReportMeteredUsage(ctx, usagedomain.UsageRequest{SubscriptionID: sub.IntegrationID, Quantity: 1, Timestamp: at(time.Hour), LookupKey: &missing})
	assert.ErrorIs(t, err, domain.ErrNoMeteredPrice)
}

func TestFlatOnlySubscriptionHasNoMeteredPrice(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customer := h.env.Customer(t)
	product := h.env.Product(t, "pro")
	price := h.env.FlatPrice(t, product.IntegrationID, "USD", 1000)
	sub := h.env.Subscribe(t, customer.IntegrationID, product.IntegrationID, "USD", price.IntegrationID)

	_, err := h.svc.ReportMeteredUsage(ctx, usagedomain.UsageRequest{SubscriptionID: sub.IntegrationID, Quantity: 1, Timestamp: at(time.Hour)})
	assert.ErrorIs(t, err, domain.ErrNoMeteredPrice)

	_, err = h.svc.ReportMeteredUsage(ctx, usagedomain.UsageRequest{SubscriptionID: "sub_missing", Quantity: 1, Timestamp: at(time.Hour)})
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
}

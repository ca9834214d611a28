package monetization

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/monetization/internal/config"
	"github.com/smallbiznis/monetization/internal/providers/providertest"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type harness struct {
	m     Monetization
	env   *providertest.Env
	rec   *providertest.Recorder
	spans *tracetest.SpanRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	env := providertest.NewLocal(t)
	rec := providertest.NewRecorder(env.Local)
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	m, err := NewStandalone(Dependencies{
		Clock:    env.Clock,
		Provider: rec,
		Tracer:   tp.Tracer("test"),
	})
	require.NoError(t, err)
	return &harness{m: m, env: env, rec: rec, spans: spans}
}

func (h *harness) spanNames() []string {
	var names []string
	for _, span := range h.spans.Ended() {
		names = append(names, span.Name())
	}
	return names
}

func TestNewStandaloneRequiresProvider(t *testing.T) {
	_, err := NewStandalone(Dependencies{})
	assert.ErrorIs(t, err, ErrMissingProvider)
}

func TestSubscriptionLifecycleThroughFacade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	customer, err := h.m.CreateCustomer(ctx, "ada@example.com", "Ada")
	require.NoError(t, err)
	product, err := h.m.CreateProduct(ctx, "api", "API", "", "")
	require.NoError(t, err)

	amount := int64(2500)
	flat, err := h.m.CreatePrice(ctx, domain.PriceSpec{
		RevenueModel:         domain.RevenueModelFlatFee,
		Cycle:                domain.CycleMonth,
		IntervalCount:        1,
		ProductIntegrationID: product.IntegrationID,
		Currency:             "usd",
		Recurring:            true,
		Amount:               &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", flat.Currency)

	first := int64(100)
	key := "api_calls"
	metered, err := h.m.CreatePrice(ctx, domain.PriceSpec{
		RevenueModel:         domain.RevenueModelGraduated,
		Cycle:                domain.CycleMonth,
		IntervalCount:        1,
		ProductIntegrationID: product.IntegrationID,
		Currency:             "USD",
		Recurring:            true,
		LookupKey:            &key,
		Tiers: domain.TierSchedule{
			{Min: 0, Max: &first, PerCall: decimal.NewFromInt(10)},
			{Min: 100, PerCall: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)

	used, err := h.m.IsLookupKeyUsed(ctx, key)
	require.NoError(t, err)
	assert.True(t, used)

	session, err := h.m.SubscriptionCheckout(ctx, CheckoutRequest{
		ReturnURLBase: "https://app.example.test/billing",
		ProductID:     product.IntegrationID,
		PriceIDs:      []string{flat.IntegrationID, metered.IntegrationID},
		CustomerID:    customer.IntegrationID,
	})
	require.NoError(t, err)
	assert.True(t, session.Open())

	_, err = h.env.Local.CompleteCheckoutSession(ctx, session.ID)
	require.NoError(t, err)

	sub, err := h.m.RefreshSubscriptionByCheckoutID(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)

	report, err := h.m.ReportMeteredUsage(ctx, UsageRequest{
		SubscriptionID: sub.IntegrationID,
		Quantity:       7,
		Timestamp:      providertest.Start.Add(time.Minute).Unix(),
	})
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Equal(t, metered.IntegrationID, report.PriceIntegrationID)

	total, err := h.m.GetMeteredUsageTotal(ctx, sub.IntegrationID, &key)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total.Total)

	assert.Equal(t, []string{
		"monetization.CreateCustomer",
		"monetization.CreateProduct",
		"monetization.CreatePrice",
		"monetization.CreatePrice",
		"monetization.IsLookupKeyUsed",
		"monetization.SubscriptionCheckout",
		"monetization.RefreshSubscriptionByCheckoutID",
		"monetization.ReportMeteredUsage",
		"monetization.GetMeteredUsageTotal",
	}, h.spanNames())
	for _, span := range h.spans.Ended() {
		assert.NotEqual(t, codes.Error, span.Status().Code, span.Name())
	}
}

func TestProviderFailureIsSurfacedAndTraced(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	product := h.env.Product(t, "api")

	h.rec.FailNext("CreatePrice", domain.NewProviderError("local", "create_price", domain.ProviderErrorNetwork, errors.New("connection reset")))

	amount := int64(100)
	_, err := h.m.CreatePrice(ctx, domain.PriceSpec{
		RevenueModel:         domain.RevenueModelFlatFee,
		Cycle:                domain.CycleMonth,
		IntervalCount:        1,
		ProductIntegrationID: product.IntegrationID,
		Currency:             "USD",
		Recurring:            true,
		Amount:               &amount,
	})
	require.ErrorIs(t, err, domain.ErrProviderFailure)
	kind, ok := domain.ProviderErrorKindOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.ProviderErrorNetwork, kind)

	spans := h.spans.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "monetization.CreatePrice", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
}

func TestUsageErrorsNeverReachProvider(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.m.CreatePrice(ctx, domain.PriceSpec{
		RevenueModel:  domain.RevenueModelFlatFee,
		Cycle:         domain.CycleMonth,
		IntervalCount: 1,
		Currency:      "USD",
		Recurring:     true,
	})
	require.Error(t, err)
	assert.True(t, domain.IsUsageError(err))
	assert.Zero(t, h.rec.Calls("CreatePrice"))

	_, err = h.m.ReportMeteredUsage(ctx, UsageRequest{SubscriptionID: "sub_x", Quantity: -1, Timestamp: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Zero(t, h.rec.Calls("RecordUsage"))
}

func TestCreditPackThroughFacade(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	customer := h.env.Customer(t)

	session, err := h.m.CheckoutCreditPack(ctx, CreditPackRequest{
		ReturnURLBase: "https://app.example.test/credits",
		CustomerID:    customer.IntegrationID,
		Amount:        5000,
		Currency:      "USD",
	})
	require.NoError(t, err)
	_, err = h.env.Local.CompleteCheckoutSession(ctx, session.ID)
	require.NoError(t, err)

	grantID, err := h.m.FulfillCreditPackCheckout(ctx, session.ID)
	require.NoError(t, err)
	again, err := h.m.FulfillCreditPackCheckout(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, grantID, again)

	balances, err := h.m.RetrieveCreditBalances(ctx, customer.IntegrationID)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, int64(5000), balances[0].AvailableCredit)
}

func TestBillingConfigDrivesCurrencyExponents(t *testing.T) {
	t.Cleanup(func() { domain.SetCurrencyExponents(nil) })
	env := providertest.NewLocal(t)

	cfg := config.DefaultBillingConfig()
	cfg.CurrencyExponents = map[string]int32{"xts": 0}
	_, err := NewStandalone(Dependencies{
		Clock:    env.Clock,
		Provider: env.Local,
		Billing:  config.NewStaticBillingConfigHolder(cfg),
	})
	require.NoError(t, err)

	assert.Equal(t, int32(0), domain.CurrencyExponent("XTS"))
	assert.Equal(t, float64(1250), domain.ToDisplay(1250, "XTS"))
}

func TestOutcomeOf(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{fmt.Errorf("wrap: %w", domain.ErrInvalidCurrency), "usage_error"},
		{domain.ErrSubscriptionNotFound, "not_found"},
		{domain.NewProviderError("local", "op", domain.ProviderErrorInternal, errors.New("x")), "provider_error"},
		{errors.New("boom"), "error"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, outcomeOf(tc.err), fmt.Sprint(tc.err))
	}
}

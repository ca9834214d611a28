package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/monetization/internal/config"
	creditdomain "github.com/smallbiznis/monetization/internal/credit/domain"
	"github.com/smallbiznis/monetization/internal/observability/metrics"
	"github.com/smallbiznis/monetization/internal/providers/providertest"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	svc creditdomain.Service
	env *providertest.Env
}

func newHarness(t *testing.T, cfg config.BillingConfig) *harness {
	t.Helper()
	env := providertest.NewLocal(t)
	svc := New(Params{
		Log:       zap.NewNop(),
		Clock:     env.Clock,
		Checkouts: env.Local,
		Credits:   env.Local,
		Invoices:  env.Local,
		Billing:   config.NewStaticBillingConfigHolder(cfg),
		Metrics:   metrics.NewNoop(),
	})
	return &harness{svc: svc, env: env}
}

func TestGrantShowsUpInBalance(t *testing.T) {
	h := newHarness(t, config.DefaultBillingConfig())
	ctx := context.Background()
	customer := h.env.Customer(t)

	balances, err := h.svc.RetrieveCreditBalances(ctx, customer.IntegrationID)
	require.NoError(t, err)
	assert.Nil(t, balances)

	id, err := h.svc.GrantCreditToCustomer(ctx, customer.IntegrationID, 500, "usd", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	balances, err = h.svc.RetrieveCreditBalances(ctx, customer.IntegrationID)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, "USD", balances[0].Currency)
	assert.Equal(t, int64(500), balances[0].AvailableCredit)
	assert.Equal(t, int64(500), balances[0].TotalCredit)
	assert.Equal(t, int64(500), balances[0].Balance)
	assert.Equal(t, 5.0, balances[0].AvailableCreditDouble)
}

func TestGrantValidation(t *testing.T) {
	h := newHarness(t, config.DefaultBillingConfig())
	ctx := context.Background()
	customer := h.env.Customer(t)

	_, err := h.svc.GrantCreditToCustomer(ctx, customer.IntegrationID, 0, "USD", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = h.svc.GrantCreditToCustomer(ctx, customer.IntegrationID, 100, " ", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)
	_, err = h.svc.GrantCreditToCustomer(ctx, "cus_missing", 100, "USD", nil)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestGrantIsIdempotentPerCheckoutSession(t *testing.T) {
	h := newHarness(t, config.DefaultBillingConfig())
	ctx := context.Background()
	customer := h.env.Customer(t)
	session := "cs_external"

	first, err := h.svc.GrantCreditToCustomer(ctx, customer.IntegrationID, 700, "USD", &session)
	require.NoError(t, err)
	second, err := h.svc.GrantCreditToCustomer(ctx, customer.IntegrationID, 700, "USD", &session)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	balances, err := h.svc.RetrieveCreditBalances(ctx, customer.IntegrationID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), balances[0].TotalCredit)
}

func TestListCreditGrantsPaging(t *testing.T) {
	cfg := config.DefaultBillingConfig()
	cfg.CreditPageSize = 2
	cfg.CreditPageSizeLimit = 3
	h := newHarness(t, cfg)
	ctx := context.Background()
	customer := h.env.Customer(t)

	var ids []string
	for _, amount := range []int64{100, 200, 300, 400} {
		id, err := h.svc.GrantCreditToCustomer(ctx, customer.IntegrationID, amount, "USD", nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	page, err := h.svc.ListCreditGrants(ctx, customer.IntegrationID, 0, nil, nil)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].IntegrationID)
	assert.Equal(t, ids[2], page[1].IntegrationID)

	page, err = h.svc.ListCreditGrants(ctx, customer.IntegrationID, 50, nil, nil)
	require.NoError(t, err)
	assert.Len(t, page, 3)

	older, err := h.svc.ListCreditGrants(ctx, customer.IntegrationID, 10, nil, &ids[2])
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, ids[1], older[0].IntegrationID)
	assert.Equal(t, ids[0], older[1].IntegrationID)

	newer, err := h.svc.ListCreditGrants(ctx, customer.IntegrationID, 10, &ids[1], nil)
	require.NoError(t, err)
	require.Len(t, newer, 2)
	assert.Equal(t, ids[3], newer[0].IntegrationID)
	assert.Equal(t, ids[2], newer[1].IntegrationID)

	_, err = h.svc.ListCreditGrants(ctx, customer.IntegrationID, 10, &ids[1], &ids[2])
	assert.ErrorIs(t, err, domain.ErrConflictingCursors)
}

func TestApplyCreditToInvoiceOldestFirst(t *testing.T) {
	h := newHarness(t, config.DefaultBillingConfig())
	ctx := context.Background()
	customer := h.env.Customer(t)
	product := h.env.Product(t, "pro")
	price := h.env.FlatPrice(t, product.IntegrationID, "USD", 1000)
	other := h.env.FlatPrice(t, product.IntegrationID, "USD", 50)
	sub := h.env.Subscribe(t, customer.IntegrationID, product.IntegrationID, "USD", price.IntegrationID)

	oldest, err := h.svc.GrantCreditToCustomer(ctx, customer.IntegrationID, 300, "USD", nil)
	require.NoError(t, err)
	_, err = h.env.Local.CreateCreditGrant(ctx, domain.CreditGrantInput{
		CustomerIntegrationID: customer.IntegrationID,
		Amount:                500,
		Currency:              "USD",
		Prices:                []string{other.IntegrationID},
	})
	require.NoError(t, err)
	_, err = h.svc.GrantCreditToCustomer(ctx, customer.IntegrationID, 900, "USD", nil)
	require.NoError(t, err)
	_, err = h.svc.GrantCreditToCustomer(ctx, customer.IntegrationID, 900, "EUR", nil)
	require.NoError(t, err)

	invoice := issuedInvoice(t, h, sub.IntegrationID)
	require.Equal(t, int64(1000), invoice.AmountRemaining)

	applied, err := h.svc.ApplyCreditToInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), applied)

	paid, err := h.env.Local.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), paid.AmountRemaining)
	assert.Equal(t, "paid", paid.Status)

	grants, err := h.env.Local.ListAvailableCreditGrants(ctx, customer.IntegrationID, "USD")
	require.NoError(t, err)
	for _, grant := range grants {
		assert.NotEqual(t, oldest, grant.IntegrationID)
	}

	balances, err := h.svc.RetrieveCreditBalances(ctx, customer.IntegrationID)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "EUR", balances[0].Currency)
	assert.Equal(t, int64(700), balances[1].AvailableCredit)
	assert.Equal(t, int64(1700), balances[1].TotalCredit)

	again, err := h.svc.ApplyCreditToInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Zero(t, again)

	_, err = h.svc.ApplyCreditToInvoice(ctx, "in_missing")
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestRestrictedGrantPaysMatchingLineOnly(t *testing.T) {
	h := newHarness(t, config.DefaultBillingConfig())
	ctx := context.Background()
	customer := h.env.Customer(t)
	product := h.env.Product(t, "pro")
	price := h.env.FlatPrice(t, product.IntegrationID, "USD", 1000)
	sub := h.env.Subscribe(t, customer.IntegrationID, product.IntegrationID, "USD", price.IntegrationID)

	_, err := h.env.Local.CreateCreditGrant(ctx, domain.CreditGrantInput{
		CustomerIntegrationID: customer.IntegrationID,
		Amount:                400,
		Currency:              "USD",
		Prices:                []string{price.IntegrationID},
	})
	require.NoError(t, err)

	invoice := issuedInvoice(t, h, sub.IntegrationID)
	applied, err := h.svc.ApplyCreditToInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), applied)

	open, err := h.env.Local.GetInvoice(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(600), open.AmountRemaining)
	assert.Equal(t, "open", open.Status)
}

func TestCreditPackCheckoutFulfilment(t *testing.T) {
	h := newHarness(t, config.DefaultBillingConfig())
	ctx := context.Background()
	customer := h.env.Customer(t)

	_, err := h.svc.CheckoutCreditPack(ctx, creditdomain.CreditPackRequest{CustomerID: customer.IntegrationID, Amount: -5, Currency: "USD"})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	session, err := h.svc.CheckoutCreditPack(ctx, creditdomain.CreditPackRequest{
		ReturnURLBase: "https://app.example.test/credits",
		CustomerID:    customer.IntegrationID,
		Amount:        2500,
		Currency:      "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CheckoutModeCreditPack, session.Mode)
	assert.True(t, session.Open())

	_, err = h.svc.FulfillCreditPackCheckout(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrCheckoutNotCompleted)

	_, err = h.env.Local.CompleteCheckoutSession(ctx, session.ID)
	require.NoError(t, err)

	first, err := h.svc.FulfillCreditPackCheckout(ctx, session.ID)
	require.NoError(t, err)
	second, err := h.svc.FulfillCreditPackCheckout(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	balances, err := h.svc.RetrieveCreditBalances(ctx, customer.IntegrationID)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, int64(2500), balances[0].TotalCredit)

	_, err = h.svc.FulfillCreditPackCheckout(ctx, "cs_missing")
	assert.ErrorIs(t, err, domain.ErrCheckoutNotFound)
}

func TestFulfilmentRejectsSubscriptionCheckout(t *testing.T) {
	h := newHarness(t, config.DefaultBillingConfig())
	ctx := context.Background()
	customer := h.env.Customer(t)
	product := h.env.Product(t, "pro")
	price := h.env.FlatPrice(t, product.IntegrationID, "USD", 1000)

	session, err := h.env.Local.CreateSubscriptionCheckout(ctx, domain.SubscriptionCheckoutInput{
		CustomerIntegrationID: customer.IntegrationID,
		ProductIntegrationID:  product.IntegrationID,
		PriceIntegrationIDs:   []string{price.IntegrationID},
		Currency:              "USD",
	})
	require.NoError(t, err)

	_, err = h.svc.FulfillCreditPackCheckout(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrWrongCheckoutMode)
}

func TestAllocateWithoutLinesSkipsRestrictedGrants(t *testing.T) {
	invoice := &domain.Invoice{ID: "in_1", Currency: "USD", AmountRemaining: 250}
	apps := allocate(invoice, []domain.CreditGrant{
		{IntegrationID: "cg_1", Remaining: 100, Currency: "USD", Prices: []string{"price_a"}},
		{IntegrationID: "cg_2", Remaining: 100, Currency: "USD"},
		{IntegrationID: "cg_3", Remaining: 500, Currency: "USD"},
	})
	assert.Equal(t, []domain.CreditApplication{
		{GrantIntegrationID: "cg_2", Amount: 100},
		{GrantIntegrationID: "cg_3", Amount: 150},
	}, apps)
}

// issuedInvoice rolls the subscription past its first period and returns
// the invoice that closed it.
func issuedInvoice(t *testing.T, h *harness, subscriptionID string) domain.Invoice {
	t.Helper()
	ctx := context.Background()
	h.env.Clock.Set(providertest.Start.AddDate(0, 1, 0))
	_, err := h.env.Local.GetSubscription(ctx, subscriptionID)
	require.NoError(t, err)
	invoices, err := h.env.Local.ListSubscriptionInvoices(ctx, subscriptionID)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	return invoices[0]
}

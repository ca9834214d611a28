package local

import (
	"context"
	"testing"

	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactoryRequiresPortalURL(t *testing.T) {
	f := newFixture(t)
	factory := NewFactory(f.db, f.provider.repo, f.clock, f.provider.genID, nil)

	_, err := factory.NewProvider(provider.Config{Name: Name})
	assert.ErrorIs(t, err, provider.ErrInvalidConfig)

	_, err = factory.NewProvider(provider.Config{Name: Name, Options: map[string]any{"portal_base_url": "not a url"}})
	assert.ErrorIs(t, err, provider.ErrInvalidConfig)
}

func TestAccountLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.provider.GetAccountStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusNotConnected, status.Status)

	_, err = f.provider.GetAccountDashboardLoginLink(ctx)
	assert.ErrorIs(t, err, domain.ErrAccountNotConnected)

	_, err = f.provider.CreateAccount(ctx, domain.AccountLinkData{})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	link, err := f.provider.CreateAccount(ctx, domain.AccountLinkData{UserObjectID: "usr_1", OrganisationObjectID: "org_1"})
	require.NoError(t, err)
	assert.Contains(t, link, "https://billing.example.test/connect/onboarding/acct_local?")
	assert.Contains(t, link, "organization=org_1")

	status, err = f.provider.GetAccountStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusPendingAction, status.Status)
	assert.Equal(t, "org_1", status.OrganizationID)
	require.Len(t, status.Requirements, 2)
	assert.Equal(t, domain.RequirementCurrentlyDue, status.Requirements[0].Status)
	require.NotNil(t, status.ChargesEnabled)
	assert.False(t, *status.ChargesEnabled)

	require.NoError(t, f.provider.CompleteOnboarding(ctx))
	status, err = f.provider.GetAccountStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusOK, status.Status)
	assert.Empty(t, status.Requirements)
	assert.True(t, *status.PayoutsEnabled)

	dashboard, err := f.provider.GetAccountDashboardLoginLink(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://billing.example.test/dashboard/acct_local", dashboard)

	require.NoError(t, f.provider.UnlinkAccount(ctx))
	status, err = f.provider.GetAccountStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusNotConnected, status.Status)
}

func TestCustomerAndProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.provider.CreateCustomer(ctx, "not-an-email", "x")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	customer := f.customer(t)
	assert.Equal(t, domain.CurrencyNone, customer.Currency)

	got, err := f.provider.GetCustomer(ctx, customer.IntegrationID)
	require.NoError(t, err)
	assert.Equal(t, customer, got)

	missing, err := f.provider.GetCustomer(ctx, "cus_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)

	product := f.product(t, "Pro Plan")
	assert.Equal(t, "prod_pro-plan", product.IntegrationID)
	again := f.product(t, "Pro Plan")
	assert.Equal(t, product.IntegrationID, again.IntegrationID)

	product.Name = "Pro"
	product.Description = "For teams"
	updated, err := f.provider.UpdateProduct(ctx, *product)
	require.NoError(t, err)
	assert.Equal(t, "For teams", updated.Description)

	_, err = f.provider.UpdateProduct(ctx, domain.Product{IntegrationID: "prod_missing"})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	link, err := f.provider.GetBillingPortalLink(ctx, customer.IntegrationID, "")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.example.test/billing/"+customer.IntegrationID, link)

	_, err = f.provider.GetBillingPortalLink(ctx, customer.IntegrationID, "sub_missing")
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)

	cfgID, err := f.provider.CreateBillingPortalConfiguration(ctx, "https://example.test/privacy", "https://example.test/tos")
	require.NoError(t, err)
	assert.NotEmpty(t, cfgID)

	_, err = f.provider.CreateBillingPortalConfiguration(ctx, "", "https://example.test/tos")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}

package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/monetization/internal/providers/providertest"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreateAndGetCustomer(t *testing.T) {
	env := providertest.NewLocal(t)
	svc := New(Params{Log: zap.NewNop(), Customers: env.Local})
	ctx := context.Background()

	_, err := svc.CreateCustomer(ctx, "not-an-email", "Ada")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	created, err := svc.CreateCustomer(ctx, " ada@example.com ", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, domain.CurrencyNone, created.Currency)

	found, err := svc.GetCustomer(ctx, created.IntegrationID)
	require.NoError(t, err)
	assert.Equal(t, created, found)

	missing, err := svc.GetCustomer(ctx, "cus_missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBillingPortal(t *testing.T) {
	env := providertest.NewLocal(t)
	svc := New(Params{Log: zap.NewNop(), Customers: env.Local})
	ctx := context.Background()
	customer := env.Customer(t)

	link, err := svc.GetEndCustomerBillingPortalLink(ctx, customer.IntegrationID, "")
	require.NoError(t, err)
	assert.Equal(t, "https://billing.example.test/billing/"+customer.IntegrationID, link)

	_, err = svc.GetEndCustomerBillingPortalLink(ctx, customer.IntegrationID, "sub_missing")
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	_, err = svc.GetEndCustomerBillingPortalLink(ctx, "cus_missing", "")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = svc.CreateBillingPortalConfiguration(ctx, "ftp://example.test/privacy", "https://example.test/terms")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	id, err := svc.CreateBillingPortalConfiguration(ctx, "https://example.test/privacy", "https://example.test/terms")
	require.NoError(t, err)
	assert.Contains(t, id, "bpc_")
}

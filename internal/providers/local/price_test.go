package local

import (
	"context"
	"testing"

	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePriceRoundTripsTiers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "api")

	price := f.graduatedPrice(t, product.IntegrationID, "usd")
	assert.Equal(t, "USD", price.Currency)
	assert.True(t, price.Metered())

	got, err := f.provider.GetPrice(ctx, price.IntegrationID)
	require.NoError(t, err)
	require.Len(t, got.Tiers, 2)
	assert.Equal(t, int64(100), *got.Tiers[0].Max)
	assert.Nil(t, got.Tiers[1].Max)
	assert.True(t, got.Tiers[1].PerCall.Equal(price.Tiers[1].PerCall))
}

func TestCreatePriceRejectsBadSpecs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	amount := int64(100)

	_, err := f.provider.CreatePrice(ctx, domain.PriceSpec{ProductIntegrationID: "prod_missing", Currency: "USD", Amount: &amount})
	assert.ErrorIs(t, err, domain.ErrInvalidPriceSpec)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	product := f.product(t, "api")
	_, err = f.provider.CreatePrice(ctx, domain.PriceSpec{ProductIntegrationID: product.IntegrationID, Amount: &amount})
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)

	_, err = f.provider.CreatePrice(ctx, domain.PriceSpec{
		RevenueModel:         domain.RevenueModelVolume,
		ProductIntegrationID: product.IntegrationID,
		Currency:             "USD",
		Tiers:                domain.TierSchedule{{Min: 1}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTierSchedule)
}

func TestLookupKeyIsFreedByArchiving(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	product := f.product(t, "api")
	amount := int64(900)
	spec := domain.PriceSpec{
		RevenueModel:         domain.RevenueModelFlatFee,
		ProductIntegrationID: product.IntegrationID,
		Currency:             "USD",
		LookupKey:            strPtr("pro_monthly"),
		Amount:               &amount,
	}

	first, err := f.provider.CreatePrice(ctx, spec)
	require.NoError(t, err)

	_, err = f.provider.CreatePrice(ctx, spec)
	assert.ErrorIs(t, err, domain.ErrLookupKeyInUse)

	found, err := f.provider.FindActivePriceByLookupKey(ctx, "pro_monthly")
	require.NoError(t, err)
	assert.Equal(t, first.IntegrationID, found.IntegrationID)

	archived, err := f.provider.SetPriceState(ctx, first.IntegrationID, domain.PriceStateArchived)
	require.NoError(t, err)
	assert.Equal(t, domain.PriceStateArchived, archived.State)
	assert.Equal(t, "pro_monthly", archived.LookupKeyValue())

	found, err = f.provider.FindActivePriceByLookupKey(ctx, "pro_monthly")
	require.NoError(t, err)
	assert.Nil(t, found)

	second, err := f.provider.CreatePrice(ctx, spec)
	require.NoError(t, err)
	assert.NotEqual(t, first.IntegrationID, second.IntegrationID)

	_, err = f.provider.SetPriceState(ctx, first.IntegrationID, domain.PriceStateActive)
	assert.ErrorIs(t, err, domain.ErrLookupKeyInUse)

	_, err = f.provider.SetPriceState(ctx, "price_missing", domain.PriceStateArchived)
	assert.ErrorIs(t, err, domain.ErrPriceNotFound)
}

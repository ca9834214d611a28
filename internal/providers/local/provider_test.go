package local

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/monetization/internal/clock"
	"github.com/smallbiznis/monetization/internal/migration"
	"github.com/smallbiznis/monetization/internal/providers/local/repository"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	provider *Provider
	clock    *clock.FakeClock
	db       *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migration.Apply(conn))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(testStart)

	factory := NewFactory(conn, repository.Provide(), clk, node, zap.NewNop())
	p, err := factory.NewProvider(provider.Config{
		Name:    Name,
		Options: map[string]any{"portal_base_url": "https://billing.example.test/"},
	})
	require.NoError(t, err)

	return &fixture{provider: p.(*Provider), clock: clk, db: conn}
}

func (f *fixture) customer(t *testing.T) *domain.Customer {
	t.Helper()
	customer, err := f.provider.CreateCustomer(context.Background(), "ada@example.com", "Ada")
	require.NoError(t, err)
	return customer
}

func (f *fixture) product(t *testing.T, planID string) *domain.Product {
	t.Helper()
	product, err := f.provider.CreateProduct(context.Background(), domain.Product{PlanID: planID, Name: planID})
	require.NoError(t, err)
	return product
}

func (f *fixture) flatPrice(t *testing.T, productID, currency string, amount int64) *domain.Price {
	t.Helper()
	price, err := f.provider.CreatePrice(context.Background(), domain.PriceSpec{
		RevenueModel:         domain.RevenueModelFlatFee,
		Cycle:                domain.CycleMonth,
		IntervalCount:        1,
		ProductIntegrationID: productID,
		Currency:             currency,
		Recurring:            true,
		Amount:               &amount,
	})
	require.NoError(t, err)
	return price
}

func (f *fixture) graduatedPrice(t *testing.T, productID, currency string) *domain.Price {
	t.Helper()
	price, err := f.provider.CreatePrice(context.Background(), domain.PriceSpec{
		RevenueModel:         domain.RevenueModelGraduated,
		Cycle:                domain.CycleMonth,
		IntervalCount:        1,
		ProductIntegrationID: productID,
		Currency:             currency,
		Recurring:            true,
		Tiers: domain.TierSchedule{
			{Min: 0, Max: int64Ptr(100), PerCall: decimal.NewFromInt(10)},
			{Min: 100, PerCall: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)
	return price
}

// subscribe opens and completes a checkout for the given prices.
func (f *fixture) subscribe(t *testing.T, customerID, productID, currency string, priceIDs ...string) *domain.Subscription {
	t.Helper()
	ctx := context.Background()
	session, err := f.provider.CreateSubscriptionCheckout(ctx, domain.SubscriptionCheckoutInput{
		CustomerIntegrationID: customerID,
		ProductIntegrationID:  productID,
		PriceIntegrationIDs:   priceIDs,
		Currency:              currency,
		ReturnURLBase:         "https://app.example.test/return",
	})
	require.NoError(t, err)
	completed, err := f.provider.CompleteCheckoutSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.SubscriptionID)
	sub, err := f.provider.GetSubscription(ctx, *completed.SubscriptionID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	return sub
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }

// Package providertest builds a local provider on in-memory SQLite for
// engine tests.
package providertest

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/monetization/internal/clock"
	"github.com/smallbiznis/monetization/internal/migration"
	"github.com/smallbiznis/monetization/internal/providers/local"
	"github.com/smallbiznis/monetization/internal/providers/local/repository"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type Env struct {
	Local *local.Provider
	Clock *clock.FakeClock
	DB    *gorm.DB
}

func NewLocal(t testing.TB) *Env {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, migration.Apply(conn))

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	clk := clock.NewFakeClock(Start)

	p, err := local.NewFactory(conn, repository.Provide(), clk, node, zap.NewNop()).NewProvider(provider.Config{
		Name:    local.Name,
		Options: map[string]any{"portal_base_url": "https://billing.example.test"},
	})
	require.NoError(t, err)
	return &Env{Local: p.(*local.Provider), Clock: clk, DB: conn}
}

func (e *Env) Customer(t testing.TB) *domain.Customer {
	t.Helper()
	customer, err := e.Local.CreateCustomer(context.Background(), "grace@example.com", "Grace")
	require.NoError(t, err)
	return customer
}

func (e *Env) Product(t testing.TB, planID string) *domain.Product {
	t.Helper()
	product, err := e.Local.CreateProduct(context.Background(), domain.Product{PlanID: planID, Name: planID})
	require.NoError(t, err)
	return product
}

func (e *Env) FlatPrice(t testing.TB, productID, currency string, amount int64, lookupKey ...string) *domain.Price {
	t.Helper()
	spec := domain.PriceSpec{
		RevenueModel:         domain.RevenueModelFlatFee,
		Cycle:                domain.CycleMonth,
		IntervalCount:        1,
		ProductIntegrationID: productID,
		Currency:             currency,
		Recurring:            true,
		Amount:               &amount,
	}
	if len(lookupKey) > 0 {
		spec.LookupKey = &lookupKey[0]
	}
	price, err := e.Local.CreatePrice(context.Background(), spec)
	require.NoError(t, err)
	return price
}

// MeteredPrice charges 10 per unit up to 100 units and 5 per unit above.
func (e *Env) MeteredPrice(t testing.TB, productID, currency string, lookupKey ...string) *domain.Price {
	t.Helper()
	first := int64(100)
	spec := domain.PriceSpec{
		RevenueModel:         domain.RevenueModelGraduated,
		Cycle:                domain.CycleMonth,
		IntervalCount:        1,
		ProductIntegrationID: productID,
		Currency:             currency,
		Recurring:            true,
		Tiers: domain.TierSchedule{
			{Min: 0, Max: &first, PerCall: decimal.NewFromInt(10)},
			{Min: 100, PerCall: decimal.NewFromInt(5)},
		},
	}
	if len(lookupKey) > 0 {
		spec.LookupKey = &lookupKey[0]
	}
	price, err := e.Local.CreatePrice(context.Background(), spec)
	require.NoError(t, err)
	return price
}

// Subscribe runs a checkout to completion and returns the new subscription.
func (e *Env) Subscribe(t testing.TB, customerID, productID, currency string, priceIDs ...string) *domain.Subscription {
	t.Helper()
	ctx := context.Background()
	session, err := e.Local.CreateSubscriptionCheckout(ctx, domain.SubscriptionCheckoutInput{
		CustomerIntegrationID: customerID,
		ProductIntegrationID:  productID,
		PriceIntegrationIDs:   priceIDs,
		Currency:              currency,
	})
	require.NoError(t, err)
	completed, err := e.Local.CompleteCheckoutSession(ctx, session.ID)
	require.NoError(t, err)
	sub, err := e.Local.GetSubscription(ctx, *completed.SubscriptionID)
	require.NoError(t, err)
	return sub
}

// Recorder counts provider writes and can inject failures into them.
type Recorder struct {
	provider.Provider

	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
}

func NewRecorder(p provider.Provider) *Recorder {
	return &Recorder{Provider: p, calls: map[string]int{}, fail: map[string]error{}}
}

func (r *Recorder) FailNext(op string, err error) {
	r.mu.Lock()
	r.fail[op] = err
	r.mu.Unlock()
}

func (r *Recorder) Calls(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *Recorder) record(op string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[op]++
	err := r.fail[op]
	delete(r.fail, op)
	return err
}

func (r *Recorder) CreatePrice(ctx context.Context, spec domain.PriceSpec) (*domain.Price, error) {
	if err := r.record("CreatePrice"); err != nil {
		return nil, err
	}
	return r.Provider.CreatePrice(ctx, spec)
}

func (r *Recorder) SetPriceState(ctx context.Context, id string, state domain.PriceState) (*domain.Price, error) {
	if err := r.record("SetPriceState"); err != nil {
		return nil, err
	}
	return r.Provider.SetPriceState(ctx, id, state)
}

func (r *Recorder) CreateSubscriptionCheckout(ctx context.Context, input domain.SubscriptionCheckoutInput) (*domain.CheckoutSession, error) {
	if err := r.record("CreateSubscriptionCheckout"); err != nil {
		return nil, err
	}
	return r.Provider.CreateSubscriptionCheckout(ctx, input)
}

func (r *Recorder) RecordUsage(ctx context.Context, report domain.UsageReport) (*domain.UsageReport, error) {
	if err := r.record("RecordUsage"); err != nil {
		return nil, err
	}
	return r.Provider.RecordUsage(ctx, report)
}

func (r *Recorder) GetSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	if err := r.record("GetSubscription"); err != nil {
		return nil, err
	}
	return r.Provider.GetSubscription(ctx, id)
}

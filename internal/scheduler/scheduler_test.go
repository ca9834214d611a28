package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/monetization/internal/observability/metrics"
	"github.com/smallbiznis/monetization/internal/providers/providertest"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunOnceInvoicesEndedPeriods(t *testing.T) {
	env := providertest.NewLocal(t)
	ctx := context.Background()
	customer := env.Customer(t)
	product := env.Product(t, "pro")
	price := env.FlatPrice(t, product.IntegrationID, "USD", 1200)
	sub := env.Subscribe(t, customer.IntegrationID, product.IntegrationID, "USD", price.IntegrationID)

	sched, err := New(Params{Log: zap.NewNop(), Clock: env.Clock, Provider: env.Local, Metrics: metrics.NewNoop(), Config: DefaultConfig()})
	require.NoError(t, err)
	assert.True(t, sched.Enabled())

	require.NoError(t, sched.RunOnce(ctx))
	invoices, err := env.Local.ListSubscriptionInvoices(ctx, sub.IntegrationID)
	require.NoError(t, err)
	assert.Empty(t, invoices)

	env.Clock.Set(providertest.Start.AddDate(0, 2, 0))
	require.NoError(t, sched.RunOnce(ctx))
	invoices, err = env.Local.ListSubscriptionInvoices(ctx, sub.IntegrationID)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, int64(1200), invoices[0].Total)
}

type plainProvider struct {
	provider.Provider
}

func TestSchedulerIdlesWithoutSettler(t *testing.T) {
	env := providertest.NewLocal(t)
	sched, err := New(Params{Log: zap.NewNop(), Clock: env.Clock, Provider: plainProvider{env.Local}})
	require.NoError(t, err)
	assert.False(t, sched.Enabled())
	assert.NoError(t, sched.RunOnce(context.Background()))
}

type failingSettler struct {
	plainProvider
}

func (failingSettler) SettleDue(context.Context) (int, error) {
	return 0, errors.New("database unavailable")
}

func TestRunOnceReportsFailures(t *testing.T) {
	env := providertest.NewLocal(t)
	sched, err := New(Params{Log: zap.NewNop(), Clock: env.Clock, Provider: failingSettler{plainProvider{env.Local}}})
	require.NoError(t, err)
	assert.EqualError(t, sched.RunOnce(context.Background()), "database unavailable")
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

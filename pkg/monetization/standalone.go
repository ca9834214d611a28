package monetization

import (
	"errors"

	accountservice "github.com/smallbiznis/monetization/internal/account/service"
	"github.com/smallbiznis/monetization/internal/clock"
	"github.com/smallbiznis/monetization/internal/config"
	creditservice "github.com/smallbiznis/monetization/internal/credit/service"
	customerservice "github.com/smallbiznis/monetization/internal/customer/service"
	"github.com/smallbiznis/monetization/internal/idempotency"
	"github.com/smallbiznis/monetization/internal/observability/metrics"
	priceservice "github.com/smallbiznis/monetization/internal/price/service"
	productservice "github.com/smallbiznis/monetization/internal/product/service"
	subscriptionservice "github.com/smallbiznis/monetization/internal/subscription/service"
	usageservice "github.com/smallbiznis/monetization/internal/usage/service"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var ErrMissingProvider = errors.New("monetization: provider is required")

// Dependencies wires the facade without an fx container. Only Provider is
// required.
type Dependencies struct {
	Log      *zap.Logger
	Clock    clock.Clock
	Provider provider.Provider
	Store    idempotency.Store
	Billing  *config.BillingConfigHolder
	Metrics  *metrics.Metrics
	Tracer   trace.Tracer
}

func NewStandalone(d Dependencies) (Monetization, error) {
	if d.Provider == nil {
		return nil, ErrMissingProvider
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = clock.SystemClock{}
	}
	if d.Store == nil {
		d.Store = idempotency.NewMemoryStore(d.Clock)
	}
	if d.Billing == nil {
		d.Billing = config.NewStaticBillingConfigHolder(config.DefaultBillingConfig())
	}
	if d.Metrics == nil {
		d.Metrics = metrics.NewNoop()
	}

	p := d.Provider
	return New(Params{
		Log:      d.Log,
		Clock:    d.Clock,
		Provider: p,
		Tracer:   d.Tracer,
		Metrics:  d.Metrics,
		Billing:  d.Billing,

		Accounts:  accountservice.New(accountservice.Params{Log: d.Log, Accounts: p}),
		Customers: customerservice.New(customerservice.Params{Log: d.Log, Customers: p}),
		Products:  productservice.New(productservice.Params{Log: d.Log, Products: p}),
		Prices: priceservice.New(priceservice.Params{
			Log:      d.Log,
			Prices:   p,
			Products: p,
			Metrics:  d.Metrics,
		}),
		Subscriptions: subscriptionservice.New(subscriptionservice.Params{
			Log:           d.Log,
			Clock:         d.Clock,
			Customers:     p,
			Products:      p,
			Prices:        p,
			Checkouts:     p,
			Subscriptions: p,
			Invoices:      p,
			Store:         d.Store,
			Billing:       d.Billing,
			Metrics:       d.Metrics,
		}),
		Usage: usageservice.New(usageservice.Params{
			Log:           d.Log,
			Clock:         d.Clock,
			Subscriptions: p,
			Prices:        p,
			Usage:         p,
			Metrics:       d.Metrics,
		}),
		Credits: creditservice.New(creditservice.Params{
			Log:       d.Log,
			Clock:     d.Clock,
			Checkouts: p,
			Credits:   p,
			Invoices:  p,
			Billing:   d.Billing,
			Metrics:   d.Metrics,
		}),
	}), nil
}

package monetization

import (
	"context"
	"errors"
	"time"

	accountdomain "github.com/smallbiznis/monetization/internal/account/domain"
	"github.com/smallbiznis/monetization/internal/clock"
	"github.com/smallbiznis/monetization/internal/config"
	creditdomain "github.com/smallbiznis/monetization/internal/credit/domain"
	customerdomain "github.com/smallbiznis/monetization/internal/customer/domain"
	"github.com/smallbiznis/monetization/internal/observability/logger"
	"github.com/smallbiznis/monetization/internal/observability/metrics"
	"github.com/smallbiznis/monetization/internal/observability/tracing"
	pricedomain "github.com/smallbiznis/monetization/internal/price/domain"
	productdomain "github.com/smallbiznis/monetization/internal/product/domain"
	subscriptiondomain "github.com/smallbiznis/monetization/internal/subscription/domain"
	usagedomain "github.com/smallbiznis/monetization/internal/usage/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Clock    clock.Clock
	Provider provider.Provider
	Tracer   trace.Tracer                `optional:"true"`
	Metrics  *metrics.Metrics            `optional:"true"`
	Billing  *config.BillingConfigHolder `optional:"true"`

	Accounts      accountdomain.Service
	Customers     customerdomain.Service
	Products      productdomain.Service
	Prices        pricedomain.Service
	Subscriptions subscriptiondomain.Service
	Usage         usagedomain.Service
	Credits       creditdomain.Service
}

type adapter struct {
	log      *zap.Logger
	clock    clock.Clock
	provider string
	tracer   trace.Tracer
	metrics  *metrics.Metrics

	accounts      accountdomain.Service
	customers     customerdomain.Service
	products      productdomain.Service
	prices        pricedomain.Service
	subscriptions subscriptiondomain.Service
	usage         usagedomain.Service
	credits       creditdomain.Service
}

func New(p Params) Monetization {
	if p.Billing != nil {
		p.Billing.OnChange(func(cfg config.BillingConfig) {
			domain.SetCurrencyExponents(cfg.CurrencyExponents)
		})
	}
	return &adapter{
		log:           logger.WithProvider(p.Log.Named("monetization"), p.Provider.Name()),
		clock:         p.Clock,
		provider:      p.Provider.Name(),
		tracer:        p.Tracer,
		metrics:       p.Metrics,
		accounts:      p.Accounts,
		customers:     p.Customers,
		products:      p.Products,
		prices:        p.Prices,
		subscriptions: p.Subscriptions,
		usage:         p.Usage,
		credits:       p.Credits,
	}
}

// observe opens the span for one facade call. The returned func must be
// called with the call's error when it returns.
func (a *adapter) observe(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := a.clock.Now()
	attrs = append(attrs, attribute.String("provider", a.provider))
	ctx, span := tracing.Start(ctx, a.tracer, "monetization."+op, attrs...)

	return ctx, func(err error) {
		outcome := outcomeOf(err)
		a.metrics.RecordOperation(ctx, op, outcome, a.clock.Now().Sub(start))

		switch outcome {
		case "success":
		case "provider_error":
			kind, _ := domain.ProviderErrorKindOf(err)
			a.metrics.RecordProviderFailure(ctx, a.provider, op, string(kind))
			logger.WithContext(ctx, a.log).Warn("provider call failed", zap.String("operation", op), zap.Error(err))
		case "error":
			logger.WithContext(ctx, a.log).Error("operation failed", zap.String("operation", op), zap.Error(err))
		default:
			logger.WithContext(ctx, a.log).Debug("operation rejected", zap.String("operation", op), zap.String("outcome", outcome), zap.Error(err))
		}
		tracing.End(span, err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrProviderFailure):
		return "provider_error"
	case domain.IsUsageError(err):
		return "usage_error"
	case isNotFound(err):
		return "not_found"
	default:
		return "error"
	}
}

func isNotFound(err error) bool {
	for _, target := range []error{
		domain.ErrCustomerNotFound,
		domain.ErrProductNotFound,
		domain.ErrPriceNotFound,
		domain.ErrSubscriptionNotFound,
		domain.ErrCheckoutNotFound,
		domain.ErrInvoiceNotFound,
		domain.ErrAccountNotConnected,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func (a *adapter) CreateAccount(ctx context.Context, link domain.AccountLinkData) (url string, err error) {
	ctx, done := a.observe(ctx, "CreateAccount", attribute.String("organization.id", link.OrganisationObjectID))
	defer func() { done(err) }()
	return a.accounts.CreateAccount(ctx, link)
}

func (a *adapter) GetAccountStatus(ctx context.Context) (status *domain.AccountStatus, err error) {
	ctx, done := a.observe(ctx, "GetAccountStatus")
	defer func() { done(err) }()
	return a.accounts.GetAccountStatus(ctx)
}

func (a *adapter) GetAccountDashboardLoginLink(ctx context.Context) (url string, err error) {
	ctx, done := a.observe(ctx, "GetAccountDashboardLoginLink")
	defer func() { done(err) }()
	return a.accounts.GetAccountDashboardLoginLink(ctx)
}

func (a *adapter) UnlinkAccount(ctx context.Context) (err error) {
	ctx, done := a.observe(ctx, "UnlinkAccount")
	defer func() { done(err) }()
	return a.accounts.UnlinkAccount(ctx)
}

func (a *adapter) GetCustomer(ctx context.Context, id string) (customer *domain.Customer, err error) {
	ctx, done := a.observe(ctx, "GetCustomer", attribute.String("customer.id", id))
	defer func() { done(err) }()
	return a.customers.GetCustomer(ctx, id)
}

func (a *adapter) CreateCustomer(ctx context.Context, email, name string) (customer *domain.Customer, err error) {
	ctx, done := a.observe(ctx, "CreateCustomer", attribute.String("customer.email", email))
	defer func() { done(err) }()
	return a.customers.CreateCustomer(ctx, email, name)
}

func (a *adapter) GetEndCustomerBillingPortalLink(ctx context.Context, customerID, subscriptionID string) (url string, err error) {
	ctx, done := a.observe(ctx, "GetEndCustomerBillingPortalLink",
		attribute.String("customer.id", customerID),
		attribute.String("subscription.id", subscriptionID),
	)
	defer func() { done(err) }()
	return a.customers.GetEndCustomerBillingPortalLink(ctx, customerID, subscriptionID)
}

func (a *adapter) CreateBillingPortalConfiguration(ctx context.Context, privacyPolicyURL, termsOfServiceURL string) (id string, err error) {
	ctx, done := a.observe(ctx, "CreateBillingPortalConfiguration")
	defer func() { done(err) }()
	return a.customers.CreateBillingPortalConfiguration(ctx, privacyPolicyURL, termsOfServiceURL)
}

func (a *adapter) DoesProductExist(ctx context.Context, id string) (exists bool, err error) {
	ctx, done := a.observe(ctx, "DoesProductExist", attribute.String("product.id", id))
	defer func() { done(err) }()
	return a.products.DoesProductExist(ctx, id)
}

func (a *adapter) CreateProduct(ctx context.Context, planID, name, description, imageURL string) (product *domain.Product, err error) {
	ctx, done := a.observe(ctx, "CreateProduct", attribute.String("plan.id", planID))
	defer func() { done(err) }()
	return a.products.CreateProduct(ctx, planID, name, description, imageURL)
}

func (a *adapter) UpdateProduct(ctx context.Context, id, name, description, imageURL string) (product *domain.Product, err error) {
	ctx, done := a.observe(ctx, "UpdateProduct", attribute.String("product.id", id))
	defer func() { done(err) }()
	return a.products.UpdateProduct(ctx, id, name, description, imageURL)
}

func (a *adapter) GetProduct(ctx context.Context, id string) (product *domain.Product, err error) {
	ctx, done := a.observe(ctx, "GetProduct", attribute.String("product.id", id))
	defer func() { done(err) }()
	return a.products.GetProduct(ctx, id)
}

func (a *adapter) CreatePrice(ctx context.Context, spec domain.PriceSpec) (price *domain.Price, err error) {
	ctx, done := a.observe(ctx, "CreatePrice",
		attribute.String("product.id", spec.ProductIntegrationID),
		attribute.String("revenue_model", string(spec.RevenueModel)),
	)
	defer func() { done(err) }()
	return a.prices.CreatePrice(ctx, spec)
}

func (a *adapter) UpdatePrice(ctx context.Context, id string, spec domain.PriceSpec) (price *domain.Price, err error) {
	ctx, done := a.observe(ctx, "UpdatePrice", attribute.String("price.id", id))
	defer func() { done(err) }()
	return a.prices.UpdatePrice(ctx, id, spec)
}

func (a *adapter) GetPriceByID(ctx context.Context, id string) (price *domain.Price, err error) {
	ctx, done := a.observe(ctx, "GetPriceByID", attribute.String("price.id", id))
	defer func() { done(err) }()
	return a.prices.GetPriceByID(ctx, id)
}

func (a *adapter) FindPriceByLookupKey(ctx context.Context, key string) (price *domain.Price, err error) {
	ctx, done := a.observe(ctx, "FindPriceByLookupKey", attribute.String("price.lookup_key", key))
	defer func() { done(err) }()
	return a.prices.FindPriceByLookupKey(ctx, key)
}

func (a *adapter) IsLookupKeyUsed(ctx context.Context, key string) (used bool, err error) {
	ctx, done := a.observe(ctx, "IsLookupKeyUsed", attribute.String("price.lookup_key", key))
	defer func() { done(err) }()
	return a.prices.IsLookupKeyUsed(ctx, key)
}

func (a *adapter) QuotePrice(ctx context.Context, id string, quantity int64) (amount int64, err error) {
	ctx, done := a.observe(ctx, "QuotePrice", attribute.String("price.id", id), attribute.Int64("quantity", quantity))
	defer func() { done(err) }()
	return a.prices.QuotePrice(ctx, id, quantity)
}

func (a *adapter) CanCreateSubscriptionWithCurrency(ctx context.Context, customerID, currency string) (ok bool, err error) {
	ctx, done := a.observe(ctx, "CanCreateSubscriptionWithCurrency",
		attribute.String("customer.id", customerID),
		attribute.String("currency", currency),
	)
	defer func() { done(err) }()
	return a.subscriptions.CanCreateSubscriptionWithCurrency(ctx, customerID, currency)
}

func (a *adapter) SubscriptionCheckout(ctx context.Context, req CheckoutRequest) (session *domain.CheckoutSession, err error) {
	ctx, done := a.observe(ctx, "SubscriptionCheckout",
		attribute.String("customer.id", req.CustomerID),
		attribute.String("product.id", req.ProductID),
	)
	defer func() { done(err) }()
	return a.subscriptions.SubscriptionCheckout(ctx, req)
}

func (a *adapter) GetCheckoutSession(ctx context.Context, id string) (session *domain.CheckoutSession, err error) {
	ctx, done := a.observe(ctx, "GetCheckoutSession", attribute.String("checkout.id", id))
	defer func() { done(err) }()
	return a.subscriptions.GetCheckoutSession(ctx, id)
}

func (a *adapter) ExpireCheckoutSession(ctx context.Context, id string) (err error) {
	ctx, done := a.observe(ctx, "ExpireCheckoutSession", attribute.String("checkout.id", id))
	defer func() { done(err) }()
	return a.subscriptions.ExpireCheckoutSession(ctx, id)
}

func (a *adapter) RefreshSubscriptionByID(ctx context.Context, id string) (sub *domain.Subscription, err error) {
	ctx, done := a.observe(ctx, "RefreshSubscriptionByID", attribute.String("subscription.id", id))
	defer func() { done(err) }()
	return a.subscriptions.RefreshSubscriptionByID(ctx, id)
}

func (a *adapter) RefreshSubscriptionByCheckoutID(ctx context.Context, checkoutID string) (sub *domain.Subscription, err error) {
	ctx, done := a.observe(ctx, "RefreshSubscriptionByCheckoutID", attribute.String("checkout.id", checkoutID))
	defer func() { done(err) }()
	return a.subscriptions.RefreshSubscriptionByCheckoutID(ctx, checkoutID)
}

func (a *adapter) CancelSubscription(ctx context.Context, id string, immediately bool, at *time.Time) (cancelled bool, err error) {
	ctx, done := a.observe(ctx, "CancelSubscription",
		attribute.String("subscription.id", id),
		attribute.Bool("immediately", immediately),
	)
	defer func() { done(err) }()
	return a.subscriptions.CancelSubscription(ctx, id, immediately, at)
}

func (a *adapter) UpdateSubscription(ctx context.Context, id string, newPrice domain.Price) (updated bool, err error) {
	ctx, done := a.observe(ctx, "UpdateSubscription",
		attribute.String("subscription.id", id),
		attribute.String("price.id", newPrice.IntegrationID),
	)
	defer func() { done(err) }()
	return a.subscriptions.UpdateSubscription(ctx, id, newPrice)
}

func (a *adapter) FindNextInvoiceDateForSubscription(ctx context.Context, id string) (next *int64, err error) {
	ctx, done := a.observe(ctx, "FindNextInvoiceDateForSubscription", attribute.String("subscription.id", id))
	defer func() { done(err) }()
	return a.subscriptions.FindNextInvoiceDateForSubscription(ctx, id)
}

func (a *adapter) FindSubscriptionInvoices(ctx context.Context, id string) (invoices []domain.Invoice, err error) {
	ctx, done := a.observe(ctx, "FindSubscriptionInvoices", attribute.String("subscription.id", id))
	defer func() { done(err) }()
	return a.subscriptions.FindSubscriptionInvoices(ctx, id)
}

func (a *adapter) ReportMeteredUsage(ctx context.Context, req UsageRequest) (report *domain.UsageReport, err error) {
	ctx, done := a.observe(ctx, "ReportMeteredUsage",
		attribute.String("subscription.id", req.SubscriptionID),
		attribute.Bool("set", req.SetInsteadOfIncrement),
	)
	defer func() { done(err) }()
	return a.usage.ReportMeteredUsage(ctx, req)
}

func (a *adapter) GetMeteredUsageTotal(ctx context.Context, subscriptionID string, lookupKey *string) (total *domain.UsageTotal, err error) {
	ctx, done := a.observe(ctx, "GetMeteredUsageTotal", attribute.String("subscription.id", subscriptionID))
	defer func() { done(err) }()
	return a.usage.GetMeteredUsageTotal(ctx, subscriptionID, lookupKey)
}

func (a *adapter) GrantCreditToCustomer(ctx context.Context, customerID string, amount int64, currency string, checkoutSessionID *string) (id string, err error) {
	ctx, done := a.observe(ctx, "GrantCreditToCustomer",
		attribute.String("customer.id", customerID),
		attribute.String("currency", currency),
	)
	defer func() { done(err) }()
	return a.credits.GrantCreditToCustomer(ctx, customerID, amount, currency, checkoutSessionID)
}

func (a *adapter) ListCreditGrants(ctx context.Context, customerID string, limit int, before, after *string) (grants []domain.CreditGrant, err error) {
	ctx, done := a.observe(ctx, "ListCreditGrants", attribute.String("customer.id", customerID))
	defer func() { done(err) }()
	return a.credits.ListCreditGrants(ctx, customerID, limit, before, after)
}

func (a *adapter) RetrieveCreditBalances(ctx context.Context, customerID string) (balances []domain.Balance, err error) {
	ctx, done := a.observe(ctx, "RetrieveCreditBalances", attribute.String("customer.id", customerID))
	defer func() { done(err) }()
	return a.credits.RetrieveCreditBalances(ctx, customerID)
}

func (a *adapter) ApplyCreditToInvoice(ctx context.Context, invoiceID string) (applied int64, err error) {
	ctx, done := a.observe(ctx, "ApplyCreditToInvoice", attribute.String("invoice.id", invoiceID))
	defer func() { done(err) }()
	return a.credits.ApplyCreditToInvoice(ctx, invoiceID)
}

func (a *adapter) CheckoutCreditPack(ctx context.Context, req CreditPackRequest) (session *domain.CheckoutSession, err error) {
	ctx, done := a.observe(ctx, "CheckoutCreditPack",
		attribute.String("customer.id", req.CustomerID),
		attribute.String("currency", req.Currency),
	)
	defer func() { done(err) }()
	return a.credits.CheckoutCreditPack(ctx, req)
}

func (a *adapter) FulfillCreditPackCheckout(ctx context.Context, checkoutSessionID string) (id string, err error) {
	ctx, done := a.observe(ctx, "FulfillCreditPackCheckout", attribute.String("checkout.id", checkoutSessionID))
	defer func() { done(err) }()
	return a.credits.FulfillCreditPackCheckout(ctx, checkoutSessionID)
}

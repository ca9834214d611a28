// Package provider defines the port a billing provider implements to back the
// monetization engines. Implementations translate their own vocabulary into
// the normalized domain records and return absent values as nil, nil.
package provider

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/monetization/pkg/monetization/domain"
)

var (
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidConfig    = errors.New("invalid_provider_config")
)

type AccountGateway interface {
	CreateAccount(ctx context.Context, link domain.AccountLinkData) (string, error)
	GetAccountStatus(ctx context.Context) (*domain.AccountStatus, error)
	GetAccountDashboardLoginLink(ctx context.Context) (string, error)
	UnlinkAccount(ctx context.Context) error
}

type CustomerGateway interface {
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, email, name string) (*domain.Customer, error)
	GetBillingPortalLink(ctx context.Context, customerID, subscriptionID string) (string, error)
	CreateBillingPortalConfiguration(ctx context.Context, privacyPolicyURL, termsOfServiceURL string) (string, error)
}

type ProductGateway interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// PriceGateway stores immutable prices. SetPriceState is the only mutation
// and touches nothing but the lifecycle state.
type PriceGateway interface {
	CreatePrice(ctx context.Context, spec domain.PriceSpec) (*domain.Price, error)
	GetPrice(ctx context.Context, id string) (*domain.Price, error)
	SetPriceState(ctx context.Context, id string, state domain.PriceState) (*domain.Price, error)
	FindActivePriceByLookupKey(ctx context.Context, key string) (*domain.Price, error)
}

type CheckoutGateway interface {
	CreateSubscriptionCheckout(ctx context.Context, input domain.SubscriptionCheckoutInput) (*domain.CheckoutSession, error)
	CreateCreditPackCheckout(ctx context.Context, input domain.CreditPackCheckoutInput) (*domain.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*domain.CheckoutSession, error)
	ExpireCheckoutSession(ctx context.Context, id string) error
}

type SubscriptionGateway interface {
	GetSubscription(ctx context.Context, id string) (*domain.Subscription, error)
	CancelSubscriptionNow(ctx context.Context, id string) (*domain.Subscription, error)
	ScheduleCancellation(ctx context.Context, id string, at time.Time) (*domain.Subscription, error)
	SwapSubscriptionPrice(ctx context.Context, id, priceID string) (*domain.Subscription, error)
}

// UsageGateway records usage at most once per UsageEventID.
type UsageGateway interface {
	RecordUsage(ctx context.Context, report domain.UsageReport) (*domain.UsageReport, error)
	GetUsageTotal(ctx context.Context, subscriptionID, priceID string, periodStart, periodEnd int64) (*domain.UsageTotal, error)
}

// CreditGateway is an append-only grant ledger. CreateCreditGrant must return
// the existing grant when one was already recorded for the checkout session.
type CreditGateway interface {
	CreateCreditGrant(ctx context.Context, input domain.CreditGrantInput) (*domain.CreditGrant, error)
	ListCreditGrants(ctx context.Context, query domain.GrantListQuery) ([]domain.CreditGrant, error)
	ListAvailableCreditGrants(ctx context.Context, customerID, currency string) ([]domain.CreditGrant, error)
	CreditBalances(ctx context.Context, customerID string) ([]domain.Balance, error)
	ConsumeCredit(ctx context.Context, invoiceID string, applications []domain.CreditApplication) error
}

type InvoiceGateway interface {
	GetInvoice(ctx context.Context, id string) (*domain.Invoice, error)
	ListSubscriptionInvoices(ctx context.Context, subscriptionID string) ([]domain.Invoice, error)
}

// Provider is one concrete billing backend.
type Provider interface {
	Name() string

	AccountGateway
	CustomerGateway
	ProductGateway
	PriceGateway
	CheckoutGateway
	SubscriptionGateway
	UsageGateway
	CreditGateway
	InvoiceGateway
}

type Config struct {
	Name    string
	Options map[string]any
}

// String returns an option as a string.
func (c Config) String(key string) (string, bool) {
	value, ok := c.Options[key]
	if !ok {
		return "", false
	}
	switch cast := value.(type) {
	case string:
		return cast, true
	default:
		return "", false
	}
}

type Factory interface {
	Provider() string
	NewProvider(cfg Config) (Provider, error)
}

// Package monetization is the single surface a platform uses to sell plans,
// meter usage and run a credit ledger on top of a billing provider.
package monetization

import (
	"context"
	"time"

	creditdomain "github.com/smallbiznis/monetization/internal/credit/domain"
	subscriptiondomain "github.com/smallbiznis/monetization/internal/subscription/domain"
	usagedomain "github.com/smallbiznis/monetization/internal/usage/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
)

type (
	CheckoutRequest   = subscriptiondomain.CheckoutRequest
	UsageRequest      = usagedomain.UsageRequest
	CreditPackRequest = creditdomain.CreditPackRequest
)

type Monetization interface {
	// Account
	CreateAccount(ctx context.Context, link domain.AccountLinkData) (string, error)
	GetAccountStatus(ctx context.Context) (*domain.AccountStatus, error)
	GetAccountDashboardLoginLink(ctx context.Context) (string, error)
	UnlinkAccount(ctx context.Context) error

	// Customer
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, email, name string) (*domain.Customer, error)
	GetEndCustomerBillingPortalLink(ctx context.Context, customerID, subscriptionID string) (string, error)
	CreateBillingPortalConfiguration(ctx context.Context, privacyPolicyURL, termsOfServiceURL string) (string, error)

	// Product
	DoesProductExist(ctx context.Context, id string) (bool, error)
	CreateProduct(ctx context.Context, planID, name, description, imageURL string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id, name, description, imageURL string) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)

	// Price
	CreatePrice(ctx context.Context, spec domain.PriceSpec) (*domain.Price, error)
	UpdatePrice(ctx context.Context, id string, spec domain.PriceSpec) (*domain.Price, error)
	GetPriceByID(ctx context.Context, id string) (*domain.Price, error)
	FindPriceByLookupKey(ctx context.Context, key string) (*domain.Price, error)
	IsLookupKeyUsed(ctx context.Context, key string) (bool, error)
	QuotePrice(ctx context.Context, id string, quantity int64) (int64, error)

	// Subscription
	CanCreateSubscriptionWithCurrency(ctx context.Context, customerID, currency string) (bool, error)
	SubscriptionCheckout(ctx context.Context, req CheckoutRequest) (*domain.CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, id string) (*domain.CheckoutSession, error)
	ExpireCheckoutSession(ctx context.Context, id string) error
	RefreshSubscriptionByID(ctx context.Context, id string) (*domain.Subscription, error)
	RefreshSubscriptionByCheckoutID(ctx context.Context, checkoutID string) (*domain.Subscription, error)
	CancelSubscription(ctx context.Context, id string, immediately bool, at *time.Time) (bool, error)
	UpdateSubscription(ctx context.Context, id string, newPrice domain.Price) (bool, error)
	FindNextInvoiceDateForSubscription(ctx context.Context, id string) (*int64, error)
	FindSubscriptionInvoices(ctx context.Context, id string) ([]domain.Invoice, error)

	// Usage
	ReportMeteredUsage(ctx context.Context, req UsageRequest) (*domain.UsageReport, error)
	GetMeteredUsageTotal(ctx context.Context, subscriptionID string, lookupKey *string) (*domain.UsageTotal, error)

	// Credit
	GrantCreditToCustomer(ctx context.Context, customerID string, amount int64, currency string, checkoutSessionID *string) (string, error)
	ListCreditGrants(ctx context.Context, customerID string, limit int, before, after *string) ([]domain.CreditGrant, error)
	RetrieveCreditBalances(ctx context.Context, customerID string) ([]domain.Balance, error)
	ApplyCreditToInvoice(ctx context.Context, invoiceID string) (int64, error)
	CheckoutCreditPack(ctx context.Context, req CreditPackRequest) (*domain.CheckoutSession, error)
	FulfillCreditPackCheckout(ctx context.Context, checkoutSessionID string) (string, error)
}

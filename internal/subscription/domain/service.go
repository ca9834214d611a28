package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/monetization/pkg/monetization/domain"
)

// CheckoutRequest asks for a hosted checkout that starts a subscription to
// the given prices of one product.
type CheckoutRequest struct {
	ReturnURLBase string
	ProductID     string
	PriceIDs      []string
	CustomerID    string
}

type Service interface {
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
}

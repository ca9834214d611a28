package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/smallbiznis/monetization/internal/clock"
	"github.com/smallbiznis/monetization/internal/config"
	"github.com/smallbiznis/monetization/internal/idempotency"
	"github.com/smallbiznis/monetization/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/monetization/internal/subscription/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const checkoutScope = "subscription_checkout"

type Params struct {
	fx.In

	Log           *zap.Logger
	Clock         clock.Clock
	Customers     provider.CustomerGateway
	Products      provider.ProductGateway
	Prices        provider.PriceGateway
	Checkouts     provider.CheckoutGateway
	Subscriptions provider.SubscriptionGateway
	Invoices      provider.InvoiceGateway
	Store         idempotency.Store
	Billing       *config.BillingConfigHolder
	Metrics       *metrics.Metrics `optional:"true"`
}

type Service struct {
	log           *zap.Logger
	clock         clock.Clock
	customers     provider.CustomerGateway
	products      provider.ProductGateway
	prices        provider.PriceGateway
	checkouts     provider.CheckoutGateway
	subscriptions provider.SubscriptionGateway
	invoices      provider.InvoiceGateway
	store         idempotency.Store
	billing       *config.BillingConfigHolder
	metrics       *metrics.Metrics
}

func New(p Params) subscriptiondomain.Service {
	return &Service{
		log:           p.Log.Named("subscription.service"),
		clock:         p.Clock,
		customers:     p.Customers,
		products:      p.Products,
		prices:        p.Prices,
		checkouts:     p.Checkouts,
		subscriptions: p.Subscriptions,
		invoices:      p.Invoices,
		store:         p.Store,
		billing:       p.Billing,
		metrics:       p.Metrics,
	}
}

// CanCreateSubscriptionWithCurrency reports whether the customer may be
// billed in currency. A customer's currency is fixed by its first
// subscription and never changes afterwards.
func (s *Service) CanCreateSubscriptionWithCurrency(ctx context.Context, customerID, currency string) (bool, error) {
	if !domain.CurrencyIsSet(currency) {
		return false, domain.ErrInvalidCurrency
	}
	customer, err := s.customers.GetCustomer(ctx, strings.TrimSpace(customerID))
	if err != nil {
		return false, err
	}
	if customer == nil {
		return false, domain.ErrCustomerNotFound
	}
	if !domain.CurrencyIsSet(customer.Currency) {
		return true, nil
	}
	return domain.SameCurrency(customer.Currency, currency), nil
}

// SubscriptionCheckout opens a checkout session, or returns nil when no
// session can be opened for the request. Repeating a request while its
// session is still open returns that session.
func (s *Service) SubscriptionCheckout(ctx context.Context, req subscriptiondomain.CheckoutRequest) (*domain.CheckoutSession, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	productID := strings.TrimSpace(req.ProductID)
	priceIDs := normalizeIDs(req.PriceIDs)
	if customerID == "" || productID == "" || len(priceIDs) == 0 {
		return nil, domain.ErrInvalidID
	}

	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	currency := ""
	for _, id := range priceIDs {
		price, err := s.prices.GetPrice(ctx, id)
		if err != nil {
			return nil, err
		}
		if price == nil {
			return nil, domain.ErrPriceNotFound
		}
		if !price.Active() || price.ProductIntegrationID != product.IntegrationID {
			return s.rejectCheckout(ctx, "price not offered", id)
		}
		if currency == "" {
			currency = price.Currency
		}
		if !domain.SameCurrency(currency, price.Currency) {
			return s.rejectCheckout(ctx, "mixed currencies", id)
		}
	}

	allowed, err := s.CanCreateSubscriptionWithCurrency(ctx, customerID, currency)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return s.rejectCheckout(ctx, "customer currency conflict", customerID)
	}

	key := idempotency.Key(checkoutScope, customerID, productID, strings.Join(priceIDs, ","), strings.TrimSpace(req.ReturnURLBase))
	if session, err := s.reuseCheckout(ctx, key); err != nil || session != nil {
		return session, err
	}

	now := s.clock.Now()
	expiresAt := now.Add(s.billing.Get().CheckoutSessionTTL)
	session, err := s.checkouts.CreateSubscriptionCheckout(ctx, domain.SubscriptionCheckoutInput{
		CustomerIntegrationID: customerID,
		ProductIntegrationID:  productID,
		PriceIntegrationIDs:   priceIDs,
		Currency:              currency,
		ReturnURLBase:         strings.TrimSpace(req.ReturnURLBase),
		ExpiresAt:             expiresAt,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCurrency) || errors.Is(err, domain.ErrPriceArchived) {
			return s.rejectCheckout(ctx, err.Error(), customerID)
		}
		return nil, err
	}

	held, stored, err := s.store.PutIfAbsent(ctx, key, session.ID, session.ExpiresAt.Sub(now))
	if err != nil {
		s.log.Warn("failed to remember checkout session", zap.String("session_id", session.ID), zap.Error(err))
	} else if !stored && held != session.ID {
		// a concurrent identical request won; hand out its session instead
		if other, err := s.checkouts.GetCheckoutSession(ctx, held); err == nil && other != nil && other.Open() {
			if err := s.checkouts.ExpireCheckoutSession(ctx, session.ID); err != nil {
				s.log.Warn("failed to expire duplicate checkout session", zap.String("session_id", session.ID), zap.Error(err))
			}
			s.metrics.RecordCheckout(ctx, string(domain.CheckoutModeSubscription), "reused")
			return other, nil
		}
	}

	s.metrics.RecordCheckout(ctx, string(domain.CheckoutModeSubscription), "created")
	s.log.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.String("customer_id", customerID),
		zap.String("currency", currency),
	)
	return session, nil
}

func (s *Service) GetCheckoutSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	return s.checkouts.GetCheckoutSession(ctx, id)
}

// ExpireCheckoutSession closes an open session. Unknown, expired and
// completed sessions are left alone.
func (s *Service) ExpireCheckoutSession(ctx context.Context, id string) error {
	session, err := s.GetCheckoutSession(ctx, id)
	if err != nil {
		return err
	}
	if session == nil || !session.Open() {
		return nil
	}
	return s.checkouts.ExpireCheckoutSession(ctx, session.ID)
}

func (s *Service) RefreshSubscriptionByID(ctx context.Context, id string) (*domain.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrInvalidID
	}
	return s.subscriptions.GetSubscription(ctx, id)
}

// RefreshSubscriptionByCheckoutID returns the subscription a completed
// checkout started. It is safe to call any number of times.
func (s *Service) RefreshSubscriptionByCheckoutID(ctx context.Context, checkoutID string) (*domain.Subscription, error) {
	session, err := s.GetCheckoutSession(ctx, checkoutID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrCheckoutNotFound
	}
	if session.Mode != domain.CheckoutModeSubscription {
		return nil, domain.ErrWrongCheckoutMode
	}
	if !session.Completed() || session.SubscriptionID == nil {
		return nil, domain.ErrCheckoutNotCompleted
	}
	sub, err := s.subscriptions.GetSubscription(ctx, *session.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

// CancelSubscription cancels now, at the given time, or at the end of the
// current period. It returns false when the subscription is already cancelled.
func (s *Service) CancelSubscription(ctx context.Context, id string, immediately bool, at *time.Time) (bool, error) {
	sub, err := s.requireSubscription(ctx, id)
	if err != nil {
		return false, err
	}
	if sub.Cancelled() {
		return false, nil
	}

	if immediately {
		if _, err := s.subscriptions.CancelSubscriptionNow(ctx, sub.IntegrationID); err != nil {
			return false, err
		}
	} else {
		when := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		if at != nil {
			when = at.UTC()
		}
		if when.Before(s.clock.Now().Truncate(time.Second)) {
			return false, domain.ErrInvalidCancelTime
		}
		if _, err := s.subscriptions.ScheduleCancellation(ctx, sub.IntegrationID, when); err != nil {
			return false, err
		}
	}

	s.metrics.RecordCancellation(ctx, immediately)
	s.log.Info("subscription cancellation requested",
		zap.String("subscription_id", sub.IntegrationID),
		zap.Bool("immediately", immediately),
	)
	return true, nil
}

// UpdateSubscription moves the subscription onto newPrice. It returns false
// when the subscription is cancelled or bills in another currency.
func (s *Service) UpdateSubscription(ctx context.Context, id string, newPrice domain.Price) (bool, error) {
	sub, err := s.requireSubscription(ctx, id)
	if err != nil {
		return false, err
	}
	if sub.Cancelled() {
		return false, nil
	}

	price, err := s.prices.GetPrice(ctx, strings.TrimSpace(newPrice.IntegrationID))
	if err != nil {
		return false, err
	}
	if price == nil {
		return false, domain.ErrPriceNotFound
	}
	if !price.Active() {
		return false, domain.ErrPriceArchived
	}
	if !domain.SameCurrency(price.Currency, sub.Currency) {
		return false, nil
	}

	if _, err := s.subscriptions.SwapSubscriptionPrice(ctx, sub.IntegrationID, price.IntegrationID); err != nil {
		if errors.Is(err, domain.ErrInvalidCurrency) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// FindNextInvoiceDateForSubscription returns when the next invoice is issued,
// or nil when no further invoice is due.
func (s *Service) FindNextInvoiceDateForSubscription(ctx context.Context, id string) (*int64, error) {
	sub, err := s.requireSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.Active() {
		return nil, nil
	}
	if sub.CancelAt != nil && *sub.CancelAt <= sub.CurrentPeriodEnd {
		return nil, nil
	}
	next := sub.CurrentPeriodEnd
	return &next, nil
}

func (s *Service) FindSubscriptionInvoices(ctx context.Context, id string) ([]domain.Invoice, error) {
	sub, err := s.requireSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.invoices.ListSubscriptionInvoices(ctx, sub.IntegrationID)
}

func (s *Service) requireSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	sub, err := s.RefreshSubscriptionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *Service) reuseCheckout(ctx context.Context, key string) (*domain.CheckoutSession, error) {
	id, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.log.Warn("idempotency lookup failed", zap.Error(err))
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	session, err := s.checkouts.GetCheckoutSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session != nil && session.Open() {
		s.metrics.RecordCheckout(ctx, string(domain.CheckoutModeSubscription), "reused")
		return session, nil
	}
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.Warn("failed to drop stale checkout key", zap.Error(err))
	}
	return nil, nil
}

func (s *Service) rejectCheckout(ctx context.Context, reason, subject string) (*domain.CheckoutSession, error) {
	s.metrics.RecordCheckout(ctx, string(domain.CheckoutModeSubscription), "rejected")
	s.log.Info("checkout rejected", zap.String("reason", reason), zap.String("subject", subject))
	return nil, nil
}

func normalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

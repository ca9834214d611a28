package local

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"gorm.io/gorm"
)

const defaultCheckoutTTL = 24 * time.Hour

func (p *Provider) CreateSubscriptionCheckout(ctx context.Context, input domain.SubscriptionCheckoutInput) (*domain.CheckoutSession, error) {
	currency := domain.NormalizeCurrency(input.Currency)
	if !domain.CurrencyIsSet(currency) {
		return nil, domain.ErrInvalidCurrency
	}
	priceIDs := uniqueSorted(input.PriceIntegrationIDs)
	if len(priceIDs) == 0 {
		return nil, domain.ErrPriceNotFound
	}

	var row *model.CheckoutSession
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := p.repo.FindCustomer(ctx, tx, strings.TrimSpace(input.CustomerIntegrationID))
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrCustomerNotFound
		}
		if domain.CurrencyIsSet(customer.Currency) && !domain.SameCurrency(customer.Currency, currency) {
			return domain.ErrInvalidCurrency
		}

		productID := strings.TrimSpace(input.ProductIntegrationID)
		product, err := p.repo.FindProduct(ctx, tx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrProductNotFound
		}

		prices, err := p.loadPrices(ctx, tx, priceIDs)
		if err != nil {
			return err
		}
		for _, id := range priceIDs {
			price, ok := prices[id]
			if !ok {
				return domain.ErrPriceNotFound
			}
			if !price.Active() {
				return domain.ErrPriceArchived
			}
			if price.ProductIntegrationID != product.ID {
				return fmt.Errorf("%w: price %s does not belong to product %s", domain.ErrInvalidPriceSpec, id, product.ID)
			}
			if !domain.SameCurrency(price.Currency, currency) {
				return domain.ErrInvalidCurrency
			}
		}

		encoded, err := encodeStrings(priceIDs)
		if err != nil {
			return err
		}
		row = p.newCheckoutSession(domain.CheckoutModeSubscription, customer.ID, currency, input.ReturnURLBase, input.ExpiresAt)
		row.ProductID = &product.ID
		row.PriceIDs = encoded
		return p.repo.InsertCheckoutSession(ctx, tx, row)
	})
	if err != nil {
		return nil, p.fail("create_subscription_checkout", err)
	}
	return toCheckoutSession(row), nil
}

func (p *Provider) CreateCreditPackCheckout(ctx context.Context, input domain.CreditPackCheckoutInput) (*domain.CheckoutSession, error) {
	if input.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	currency := domain.NormalizeCurrency(input.Currency)
	if !domain.CurrencyIsSet(currency) {
		return nil, domain.ErrInvalidCurrency
	}

	customer, err := p.repo.FindCustomer(ctx, p.db, strings.TrimSpace(input.CustomerIntegrationID))
	if err != nil {
		return nil, p.fail("create_credit_pack_checkout", err)
	}
	if customer == nil {
		return nil, domain.ErrCustomerNotFound
	}

	amount := input.Amount
	row := p.newCheckoutSession(domain.CheckoutModeCreditPack, customer.ID, currency, input.ReturnURLBase, input.ExpiresAt)
	row.Amount = &amount
	if err := p.repo.InsertCheckoutSession(ctx, p.db, row); err != nil {
		return nil, p.fail("create_credit_pack_checkout", err)
	}
	return toCheckoutSession(row), nil
}

// GetCheckoutSession returns the session, expiring it first when its deadline passed.
func (p *Provider) GetCheckoutSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row, err := p.repo.FindCheckoutSession(ctx, p.db, id)
	if err != nil {
		return nil, p.fail("get_checkout_session", err)
	}
	if row == nil {
		return nil, nil
	}
	if err := p.expireIfDue(ctx, p.db, row); err != nil {
		return nil, p.fail("get_checkout_session", err)
	}
	return toCheckoutSession(row), nil
}

func (p *Provider) ExpireCheckoutSession(ctx context.Context, id string) error {
	row, err := p.repo.FindCheckoutSession(ctx, p.db, strings.TrimSpace(id))
	if err != nil {
		return p.fail("expire_checkout_session", err)
	}
	if row == nil || row.Status != string(domain.CheckoutStatusOpen) {
		return nil
	}
	return p.fail("expire_checkout_session", p.markExpired(ctx, p.db, row))
}

// CompleteCheckoutSession stands in for the customer paying on the hosted
// page. A subscription session fixes the customer currency and starts the
// subscription; completing twice returns the first result.
func (p *Provider) CompleteCheckoutSession(ctx context.Context, id string) (*domain.CheckoutSession, error) {
	var row *model.CheckoutSession
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = p.repo.FindCheckoutSession(ctx, tx, strings.TrimSpace(id))
		if err != nil {
			return err
		}
		if row == nil {
			return domain.ErrCheckoutNotFound
		}
		if row.Status == string(domain.CheckoutStatusComplete) {
			return nil
		}
		if err := p.expireIfDue(ctx, tx, row); err != nil {
			return err
		}
		if row.Status != string(domain.CheckoutStatusOpen) {
			return fmt.Errorf("%w: session %s expired", domain.ErrCheckoutNotCompleted, row.ID)
		}

		now := p.clock.Now()
		if row.Mode == string(domain.CheckoutModeSubscription) {
			subID, err := p.startSubscription(ctx, tx, row, now)
			if err != nil {
				return err
			}
			row.SubscriptionID = &subID
		}
		row.Status = string(domain.CheckoutStatusComplete)
		row.CompletedAt = &now
		row.UpdatedAt = now
		return p.repo.UpdateCheckoutSession(ctx, tx, row)
	})
	if err != nil {
		return nil, p.fail("complete_checkout_session", err)
	}
	return toCheckoutSession(row), nil
}

func (p *Provider) startSubscription(ctx context.Context, tx *gorm.DB, session *model.CheckoutSession, now time.Time) (string, error) {
	fixed, err := p.repo.FixCustomerCurrency(ctx, tx, session.CustomerID, session.Currency, now)
	if err != nil {
		return "", err
	}
	if !fixed {
		return "", domain.ErrInvalidCurrency
	}

	priceIDs, err := decodeStrings(session.PriceIDs)
	if err != nil {
		return "", err
	}
	prices, err := p.loadPrices(ctx, tx, priceIDs)
	if err != nil {
		return "", err
	}

	cycle, interval := domain.CycleMonth, int64(1)
	for _, id := range priceIDs {
		price, ok := prices[id]
		if !ok {
			return "", domain.ErrPriceNotFound
		}
		if price.Recurring && price.Cycle != domain.CycleNone {
			cycle, interval = price.Cycle, price.IntervalCount
			break
		}
	}

	sub := &model.Subscription{
		ID:                 p.newID("sub_"),
		CustomerID:         session.CustomerID,
		CheckoutSessionID:  &session.ID,
		Currency:           session.Currency,
		Status:             string(domain.SubscriptionStatusActive),
		Cycle:              string(cycle),
		IntervalCount:      interval,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   cycle.AddTo(now, interval),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	items := make([]model.SubscriptionItem, 0, len(priceIDs))
	for _, id := range priceIDs {
		items = append(items, model.SubscriptionItem{
			ID:             p.newID("si_"),
			SubscriptionID: sub.ID,
			PriceID:        id,
			Metered:        prices[id].Metered(),
			CreatedAt:      now,
		})
	}
	if err := p.repo.InsertSubscription(ctx, tx, sub, items); err != nil {
		return "", err
	}
	return sub.ID, nil
}

func (p *Provider) newCheckoutSession(mode domain.CheckoutMode, customerID, currency, returnURL string, expiresAt time.Time) *model.CheckoutSession {
	now := p.clock.Now()
	if !expiresAt.After(now) {
		expiresAt = now.Add(defaultCheckoutTTL)
	}
	id := "cs_" + ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	return &model.CheckoutSession{
		ID:         id,
		Mode:       string(mode),
		Status:     string(domain.CheckoutStatusOpen),
		CustomerID: customerID,
		Currency:   currency,
		ReturnURL:  strings.TrimSpace(returnURL),
		URL:        p.link("checkout", id),
		ExpiresAt:  expiresAt.UTC(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (p *Provider) expireIfDue(ctx context.Context, tx *gorm.DB, row *model.CheckoutSession) error {
	if row.Status != string(domain.CheckoutStatusOpen) || p.clock.Now().Before(row.ExpiresAt) {
		return nil
	}
	return p.markExpired(ctx, tx, row)
}

func (p *Provider) markExpired(ctx context.Context, tx *gorm.DB, row *model.CheckoutSession) error {
	row.Status = string(domain.CheckoutStatusExpired)
	row.UpdatedAt = p.clock.Now()
	return p.repo.UpdateCheckoutSession(ctx, tx, row)
}

func uniqueSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	sort.Strings(out)
	return out
}

package local

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxRollovers bounds how many periods a single settle may close.
const maxRollovers = 1200

const adjustmentUnusedTime = "unused_time"

func (p *Provider) GetSubscription(ctx context.Context, id string) (*domain.Subscription, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	var snapshot *domain.Subscription
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := p.repo.FindSubscription(ctx, tx, id)
		if err != nil || sub == nil {
			return err
		}
		if err := p.settle(ctx, tx, sub); err != nil {
			return err
		}
		snapshot, err = p.snapshot(ctx, tx, sub)
		return err
	})
	if err != nil {
		return nil, p.fail("get_subscription", err)
	}
	return snapshot, nil
}

func (p *Provider) CancelSubscriptionNow(ctx context.Context, id string) (*domain.Subscription, error) {
	var snapshot *domain.Subscription
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := p.findSettled(ctx, tx, id)
		if err != nil {
			return err
		}
		if sub.Status == string(domain.SubscriptionStatusActive) {
			if err := p.closeSubscription(ctx, tx, sub, p.clock.Now()); err != nil {
				return err
			}
		}
		snapshot, err = p.snapshot(ctx, tx, sub)
		return err
	})
	if err != nil {
		return nil, p.fail("cancel_subscription_now", err)
	}
	return snapshot, nil
}

// ScheduleCancellation ends the subscription at the given time. A time equal
// to now cancels immediately.
func (p *Provider) ScheduleCancellation(ctx context.Context, id string, at time.Time) (*domain.Subscription, error) {
	at = at.UTC().Truncate(time.Second)

	var snapshot *domain.Subscription
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := p.findSettled(ctx, tx, id)
		if err != nil {
			return err
		}
		if sub.Status == string(domain.SubscriptionStatusActive) {
			now := p.clock.Now().Truncate(time.Second)
			switch {
			case at.Before(now):
				return domain.ErrInvalidCancelTime
			case at.Equal(now):
				if err := p.closeSubscription(ctx, tx, sub, now); err != nil {
					return err
				}
			default:
				sub.CancelAt = &at
				sub.UpdatedAt = p.clock.Now()
				if err := p.repo.UpdateSubscription(ctx, tx, sub); err != nil {
					return err
				}
			}
		}
		snapshot, err = p.snapshot(ctx, tx, sub)
		return err
	})
	if err != nil {
		return nil, p.fail("schedule_cancellation", err)
	}
	return snapshot, nil
}

// SwapSubscriptionPrice replaces the item billed like the new price, metered
// for metered and flat for flat. Cancelled subscriptions are returned as is.
func (p *Provider) SwapSubscriptionPrice(ctx context.Context, id, priceID string) (*domain.Subscription, error) {
	var snapshot *domain.Subscription
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := p.findSettled(ctx, tx, id)
		if err != nil {
			return err
		}
		if sub.Status == string(domain.SubscriptionStatusActive) {
			if err := p.swapItem(ctx, tx, sub, strings.TrimSpace(priceID)); err != nil {
				return err
			}
		}
		snapshot, err = p.snapshot(ctx, tx, sub)
		return err
	})
	if err != nil {
		return nil, p.fail("swap_subscription_price", err)
	}
	return snapshot, nil
}

// SettleDue closes every period that ended before now across all
// subscriptions and returns how many subscriptions it touched.
func (p *Provider) SettleDue(ctx context.Context) (int, error) {
	subs, err := p.repo.ListDueSubscriptions(ctx, p.db, p.clock.Now())
	if err != nil {
		return 0, p.fail("settle_due", err)
	}
	for i := range subs {
		sub := subs[i]
		err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return p.settle(ctx, tx, &sub)
		})
		if err != nil {
			return i, p.fail("settle_due", err)
		}
	}
	return len(subs), nil
}

func (p *Provider) swapItem(ctx context.Context, tx *gorm.DB, sub *model.Subscription, priceID string) error {
	row, err := p.repo.FindPrice(ctx, tx, priceID)
	if err != nil {
		return err
	}
	if row == nil {
		return domain.ErrPriceNotFound
	}
	price, err := toPrice(row)
	if err != nil {
		return err
	}
	if !price.Active() {
		return domain.ErrPriceArchived
	}
	if !domain.SameCurrency(price.Currency, sub.Currency) {
		return domain.ErrInvalidCurrency
	}

	items, err := p.repo.ListSubscriptionItems(ctx, tx, sub.ID)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return domain.ErrPriceNotFound
	}
	target := items[0]
	for _, item := range items {
		if item.PriceID == price.IntegrationID {
			return nil
		}
		if item.Metered == price.Metered() {
			target = item
			break
		}
	}
	if err := p.repo.UpdateSubscriptionItemPrice(ctx, tx, target.ID, price.IntegrationID, price.Metered()); err != nil {
		return err
	}
	sub.UpdatedAt = p.clock.Now()
	return p.repo.UpdateSubscription(ctx, tx, sub)
}

func (p *Provider) findSettled(ctx context.Context, tx *gorm.DB, id string) (*model.Subscription, error) {
	sub, err := p.repo.FindSubscription(ctx, tx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err := p.settle(ctx, tx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// settle brings a subscription up to date with the clock: every period that
// ended is invoiced and a due scheduled cancellation takes effect.
func (p *Provider) settle(ctx context.Context, tx *gorm.DB, sub *model.Subscription) error {
	now := p.clock.Now()
	cycle := domain.ParseBillingCycle(sub.Cycle)

	for i := 0; i < maxRollovers && sub.Status == string(domain.SubscriptionStatusActive); i++ {
		if sub.CancelAt != nil && !sub.CancelAt.After(sub.CurrentPeriodEnd) {
			if now.Before(*sub.CancelAt) {
				return nil
			}
			return p.closeSubscription(ctx, tx, sub, *sub.CancelAt)
		}
		if now.Before(sub.CurrentPeriodEnd) {
			return nil
		}

		if _, err := p.issueInvoice(ctx, tx, sub, sub.CurrentPeriodEnd); err != nil {
			return err
		}
		next := cycle.AddTo(sub.CurrentPeriodEnd, sub.IntervalCount)
		if !next.After(sub.CurrentPeriodEnd) {
			sub.Status = string(domain.SubscriptionStatusInactive)
		} else {
			sub.CurrentPeriodStart, sub.CurrentPeriodEnd = sub.CurrentPeriodEnd, next
		}
		sub.UpdatedAt = now
		if err := p.repo.UpdateSubscription(ctx, tx, sub); err != nil {
			return err
		}
		p.log.Debug("subscription period closed",
			zap.String("subscription_id", sub.ID),
			zap.Time("period_start", sub.CurrentPeriodStart),
		)
	}
	return nil
}

// closeSubscription ends the subscription at the given time. The last
// invoice covers usage up to that time and the unused share of recurring
// flat fees is credited back as a balance adjustment.
func (p *Provider) closeSubscription(ctx context.Context, tx *gorm.DB, sub *model.Subscription, at time.Time) error {
	if at.Before(sub.CurrentPeriodStart) {
		at = sub.CurrentPeriodStart
	}
	invoice, err := p.issueInvoice(ctx, tx, sub, at)
	if err != nil {
		return err
	}

	if invoice != nil && at.Before(sub.CurrentPeriodEnd) {
		unused := unusedShare(invoice.recurring, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, at)
		if unused > 0 {
			adjustment := &model.BalanceAdjustment{
				ID:             p.newID("adj_"),
				CustomerID:     sub.CustomerID,
				SubscriptionID: sub.ID,
				Currency:       sub.Currency,
				Amount:         unused,
				Reason:         adjustmentUnusedTime,
				CreatedAt:      p.clock.Now(),
			}
			if err := p.repo.InsertBalanceAdjustment(ctx, tx, adjustment); err != nil {
				return err
			}
		}
	}

	sub.Status = string(domain.SubscriptionStatusCancelled)
	sub.CancelAt = &at
	sub.CanceledAt = &at
	sub.UpdatedAt = p.clock.Now()
	return p.repo.UpdateSubscription(ctx, tx, sub)
}

func unusedShare(amount int64, start, end, at time.Time) int64 {
	total := end.Sub(start)
	if amount <= 0 || total <= 0 || !at.Before(end) {
		return 0
	}
	remaining := end.Sub(at)
	return decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(int64(remaining / time.Second))).
		Div(decimal.NewFromInt(int64(total / time.Second))).
		Round(0).
		IntPart()
}

func (p *Provider) snapshot(ctx context.Context, tx *gorm.DB, sub *model.Subscription) (*domain.Subscription, error) {
	items, err := p.repo.ListSubscriptionItems(ctx, tx, sub.ID)
	if err != nil {
		return nil, err
	}
	return toSubscription(sub, items), nil
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *repo) InsertSubscription(ctx context.Context, db *gorm.DB, subscription *model.Subscription, items []model.SubscriptionItem) error {
	if err := db.WithContext(ctx).Create(subscription).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindSubscription(ctx context.Context, db *gorm.DB, id string) (*model.Subscription, error) {
	var subscription model.Subscription
	err := db.WithContext(ctx).Where("id = ?", id).First(&subscription).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subscription, nil
}

func (r *repo) ListSubscriptionItems(ctx context.Context, db *gorm.DB, subscriptionID string) ([]model.SubscriptionItem, error) {
	var items []model.SubscriptionItem
	err := db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	return items, err
}

func (r *repo) UpdateSubscription(ctx context.Context, db *gorm.DB, subscription *model.Subscription) error {
	return db.WithContext(ctx).Model(&model.Subscription{}).
		Where("id = ?", subscription.ID).
		Updates(map[string]any{
			"status":               subscription.Status,
			"current_period_start": subscription.CurrentPeriodStart,
			"current_period_end":   subscription.CurrentPeriodEnd,
			"cancel_at":            subscription.CancelAt,
			"canceled_at":          subscription.CanceledAt,
			"updated_at":           subscription.UpdatedAt,
		}).Error
}

func (r *repo) UpdateSubscriptionItemPrice(ctx context.Context, db *gorm.DB, itemID, priceID string, metered bool) error {
	return db.WithContext(ctx).Model(&model.SubscriptionItem{}).
		Where("id = ?", itemID).
		Updates(map[string]any{"price_id": priceID, "metered": metered}).Error
}

func (r *repo) ListDueSubscriptions(ctx context.Context, db *gorm.DB, before time.Time) ([]model.Subscription, error) {
	var subscriptions []model.Subscription
	err := db.WithContext(ctx).
		Where("status = ?", string(domain.SubscriptionStatusActive)).
		Where("current_period_end <= ? OR (cancel_at IS NOT NULL AND cancel_at <= ?)", before, before).
		Order("current_period_end ASC, id ASC").
		Find(&subscriptions).Error
	return subscriptions, err
}

func (r *repo) CountActiveSubscriptions(ctx context.Context, db *gorm.DB, customerID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&model.Subscription{}).
		Where("customer_id = ? AND status = ?", customerID, string(domain.SubscriptionStatusActive)).
		Count(&count).Error
	return count, err
}

// InsertUsageRecord stores the record unless one with the same id exists and
// reports whether a row was written.
func (r *repo) InsertUsageRecord(ctx context.Context, db *gorm.DB, record *model.UsageRecord) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) FindUsageRecord(ctx context.Context, db *gorm.DB, id string) (*model.UsageRecord, error) {
	var record model.UsageRecord
	err := db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListUsageRecords returns the records accepted into the period starting at
// periodStart that occurred no later than until. A record on the boundary
// between two periods belongs only to the period that accepted it.
func (r *repo) ListUsageRecords(ctx context.Context, db *gorm.DB, subscriptionID, priceID string, periodStart, until int64) ([]model.UsageRecord, error) {
	var records []model.UsageRecord
	err := db.WithContext(ctx).
		Where("subscription_id = ? AND price_id = ?", subscriptionID, priceID).
		Where("period_start = ? AND occurred_at <= ?", periodStart, until).
		Order("occurred_at ASC, seq ASC").
		Find(&records).Error
	return records, err
}

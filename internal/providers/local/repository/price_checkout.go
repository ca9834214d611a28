package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"gorm.io/gorm"
)

func (r *repo) InsertPrice(ctx context.Context, db *gorm.DB, price *model.Price) error {
	return db.WithContext(ctx).Create(price).Error
}

func (r *repo) FindPrice(ctx context.Context, db *gorm.DB, id string) (*model.Price, error) {
	var price model.Price
	err := db.WithContext(ctx).Where("id = ?", id).First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *repo) FindPrices(ctx context.Context, db *gorm.DB, ids []string) ([]model.Price, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var prices []model.Price
	err := db.WithContext(ctx).Where("id IN ?", ids).Order("seq ASC").Find(&prices).Error
	return prices, err
}

func (r *repo) FindActivePriceByLookupKey(ctx context.Context, db *gorm.DB, key string) (*model.Price, error) {
	var price model.Price
	err := db.WithContext(ctx).
		Where("lookup_key = ? AND state = ?", key, string(domain.PriceStateActive)).
		Order("seq DESC").
		First(&price).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &price, nil
}

func (r *repo) UpdatePriceState(ctx context.Context, db *gorm.DB, id, state string, now time.Time) error {
	return db.WithContext(ctx).Model(&model.Price{}).
		Where("id = ?", id).
		Updates(map[string]any{"state": state, "updated_at": now}).Error
}

func (r *repo) InsertCheckoutSession(ctx context.Context, db *gorm.DB, session *model.CheckoutSession) error {
	return db.WithContext(ctx).Create(session).Error
}

func (r *repo) FindCheckoutSession(ctx context.Context, db *gorm.DB, id string) (*model.CheckoutSession, error) {
	var session model.CheckoutSession
	err := db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *repo) UpdateCheckoutSession(ctx context.Context, db *gorm.DB, session *model.CheckoutSession) error {
	return db.WithContext(ctx).Model(&model.CheckoutSession{}).
		Where("id = ?", session.ID).
		Updates(map[string]any{
			"status":          session.Status,
			"subscription_id": session.SubscriptionID,
			"completed_at":    session.CompletedAt,
			"updated_at":      session.UpdatedAt,
		}).Error
}

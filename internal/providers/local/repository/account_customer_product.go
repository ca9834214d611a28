package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"gorm.io/gorm"
)

func (r *repo) FindAccount(ctx context.Context, db *gorm.DB) (*model.Account, error) {
	var account model.Account
	err := db.WithContext(ctx).Order("created_at ASC").First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) SaveAccount(ctx context.Context, db *gorm.DB, account *model.Account) error {
	return db.WithContext(ctx).Save(account).Error
}

func (r *repo) DeleteAccounts(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Where("1 = 1").Delete(&model.Account{}).Error
}

func (r *repo) InsertCustomer(ctx context.Context, db *gorm.DB, customer *model.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) FindCustomer(ctx context.Context, db *gorm.DB, id string) (*model.Customer, error) {
	var customer model.Customer
	err := db.WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// FixCustomerCurrency sets the customer's currency only while it is still
// unset. It reports whether the customer now bills in currency.
func (r *repo) FixCustomerCurrency(ctx context.Context, db *gorm.DB, id, currency string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Model(&model.Customer{}).
		Where("id = ? AND currency = ?", id, domain.CurrencyNone).
		Updates(map[string]any{"currency": currency, "updated_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	customer, err := r.FindCustomer(ctx, db, id)
	if err != nil || customer == nil {
		return false, err
	}
	return customer.Currency == currency, nil
}

func (r *repo) InsertProduct(ctx context.Context, db *gorm.DB, product *model.Product) error {
	return db.WithContext(ctx).Create(product).Error
}

func (r *repo) FindProduct(ctx context.Context, db *gorm.DB, id string) (*model.Product, error) {
	var product model.Product
	err := db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repo) UpdateProduct(ctx context.Context, db *gorm.DB, product *model.Product) error {
	return db.WithContext(ctx).Model(&model.Product{}).
		Where("id = ?", product.ID).
		Updates(map[string]any{
			"name":        product.Name,
			"description": product.Description,
			"image_url":   product.ImageURL,
			"active":      product.Active,
			"updated_at":  product.UpdatedAt,
		}).Error
}

func (r *repo) InsertPortalConfiguration(ctx context.Context, db *gorm.DB, cfg *model.PortalConfiguration) error {
	return db.WithContext(ctx).Create(cfg).Error
}

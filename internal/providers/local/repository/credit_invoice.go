package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *repo) InsertCreditGrant(ctx context.Context, db *gorm.DB, grant *model.CreditGrant) error {
	return db.WithContext(ctx).Create(grant).Error
}

func (r *repo) FindCreditGrant(ctx context.Context, db *gorm.DB, id string) (*model.CreditGrant, error) {
	var grant model.CreditGrant
	err := db.WithContext(ctx).Where("id = ?", id).First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *repo) FindCreditGrantByCheckoutSession(ctx context.Context, db *gorm.DB, sessionID string) (*model.CreditGrant, error) {
	var grant model.CreditGrant
	err := db.WithContext(ctx).Where("checkout_session_id = ?", sessionID).First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *repo) ListCreditGrants(ctx context.Context, db *gorm.DB, query GrantQuery) ([]model.CreditGrant, error) {
	stmt := db.WithContext(ctx).Where("customer_id = ?", query.CustomerID)

	var grants []model.CreditGrant
	switch {
	case query.BeforeSeq != nil:
		// walk towards newer grants, then flip back to newest first
		err := stmt.Where("seq > ?", *query.BeforeSeq).Order("seq ASC").Limit(query.Limit).Find(&grants).Error
		if err != nil {
			return nil, err
		}
		for i, j := 0, len(grants)-1; i < j; i, j = i+1, j-1 {
			grants[i], grants[j] = grants[j], grants[i]
		}
		return grants, nil
	case query.AfterSeq != nil:
		stmt = stmt.Where("seq < ?", *query.AfterSeq)
	}
	err := stmt.Order("seq DESC").Limit(query.Limit).Find(&grants).Error
	return grants, err
}

func (r *repo) ListAvailableCreditGrants(ctx context.Context, db *gorm.DB, customerID, currency string) ([]model.CreditGrant, error) {
	var grants []model.CreditGrant
	err := db.WithContext(ctx).
		Where("customer_id = ? AND currency = ? AND status = ? AND remaining > 0",
			customerID, currency, string(domain.CreditGrantAvailable)).
		Order("seq ASC").
		Find(&grants).Error
	return grants, err
}

// DebitCreditGrant lowers the remaining amount only when enough is left. It
// reports whether the debit applied.
func (r *repo) DebitCreditGrant(ctx context.Context, db *gorm.DB, id string, amount int64) (bool, error) {
	res := db.WithContext(ctx).Model(&model.CreditGrant{}).
		Where("id = ? AND remaining >= ?", id, amount).
		Update("remaining", gorm.Expr("remaining - ?", amount))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) InsertCreditConsumption(ctx context.Context, db *gorm.DB, consumption *model.CreditConsumption) error {
	return db.WithContext(ctx).Create(consumption).Error
}

func (r *repo) SumCreditByCurrency(ctx context.Context, db *gorm.DB, customerID string) ([]CreditSum, error) {
	var sums []CreditSum
	err := db.WithContext(ctx).Model(&model.CreditGrant{}).
		Select("currency, COALESCE(SUM(remaining), 0) AS available, COALESCE(SUM(amount), 0) AS total").
		Where("customer_id = ? AND status = ?", customerID, string(domain.CreditGrantAvailable)).
		Group("currency").
		Order("currency ASC").
		Scan(&sums).Error
	return sums, err
}

func (r *repo) CountCreditGrants(ctx context.Context, db *gorm.DB, customerID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&model.CreditGrant{}).Where("customer_id = ?", customerID).Count(&count).Error
	return count, err
}

func (r *repo) InsertBalanceAdjustment(ctx context.Context, db *gorm.DB, adjustment *model.BalanceAdjustment) error {
	return db.WithContext(ctx).Create(adjustment).Error
}

func (r *repo) SumBalanceAdjustments(ctx context.Context, db *gorm.DB, customerID string) (map[string]int64, error) {
	var rows []struct {
		Currency string
		Amount   int64
	}
	err := db.WithContext(ctx).Model(&model.BalanceAdjustment{}).
		Select("currency, COALESCE(SUM(amount), 0) AS amount").
		Where("customer_id = ?", customerID).
		Group("currency").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Currency] = row.Amount
	}
	return out, nil
}

// InsertInvoice writes the invoice and its lines unless an invoice already
// exists for the same subscription period. It reports whether it wrote.
func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *model.Invoice, lines []model.InvoiceLine) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subscription_id"}, {Name: "period_start"}},
			DoNothing: true,
		}).
		Create(invoice)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if len(lines) > 0 {
		if err := db.WithContext(ctx).Create(&lines).Error; err != nil {
			return false, err
		}
	}
	return true, nil
}

func (r *repo) FindInvoice(ctx context.Context, db *gorm.DB, id string) (*model.Invoice, error) {
	var invoice model.Invoice
	err := db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) ListInvoiceLines(ctx context.Context, db *gorm.DB, invoiceID string) ([]model.InvoiceLine, error) {
	var lines []model.InvoiceLine
	err := db.WithContext(ctx).Where("invoice_id = ?", invoiceID).Order("id ASC").Find(&lines).Error
	return lines, err
}

func (r *repo) ListInvoicesBySubscription(ctx context.Context, db *gorm.DB, subscriptionID string) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("period_start DESC").
		Find(&invoices).Error
	return invoices, err
}

func (r *repo) UpdateInvoice(ctx context.Context, db *gorm.DB, invoice *model.Invoice) error {
	return db.WithContext(ctx).Model(&model.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{
			"status":           invoice.Status,
			"amount_paid":      invoice.AmountPaid,
			"amount_remaining": invoice.AmountRemaining,
			"updated_at":       invoice.UpdatedAt,
		}).Error
}

package local

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"gorm.io/gorm"
)

const (
	invoiceStatusOpen = "open"
	invoiceStatusPaid = "paid"
)

type issuedInvoice struct {
	row *model.Invoice
	// recurring is the part of the total charged for recurring flat fees.
	recurring int64
}

func (p *Provider) GetInvoice(ctx context.Context, id string) (*domain.Invoice, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row, err := p.repo.FindInvoice(ctx, p.db, id)
	if err != nil {
		return nil, p.fail("get_invoice", err)
	}
	if row == nil {
		return nil, nil
	}
	lines, err := p.repo.ListInvoiceLines(ctx, p.db, row.ID)
	if err != nil {
		return nil, p.fail("get_invoice", err)
	}
	return toInvoice(row, lines), nil
}

func (p *Provider) ListSubscriptionInvoices(ctx context.Context, subscriptionID string) ([]domain.Invoice, error) {
	rows, err := p.repo.ListInvoicesBySubscription(ctx, p.db, strings.TrimSpace(subscriptionID))
	if err != nil {
		return nil, p.fail("list_subscription_invoices", err)
	}
	invoices := make([]domain.Invoice, 0, len(rows))
	for i := range rows {
		lines, err := p.repo.ListInvoiceLines(ctx, p.db, rows[i].ID)
		if err != nil {
			return nil, p.fail("list_subscription_invoices", err)
		}
		invoices = append(invoices, *toInvoice(&rows[i], lines))
	}
	return invoices, nil
}

// issueInvoice bills the current period of sub in arrears, with usage counted
// up to until. It returns nil when the period was already invoiced.
func (p *Provider) issueInvoice(ctx context.Context, tx *gorm.DB, sub *model.Subscription, until time.Time) (*issuedInvoice, error) {
	items, err := p.repo.ListSubscriptionItems(ctx, tx, sub.ID)
	if err != nil {
		return nil, err
	}
	priceIDs := make([]string, 0, len(items))
	for _, item := range items {
		priceIDs = append(priceIDs, item.PriceID)
	}
	prices, err := p.loadPrices(ctx, tx, priceIDs)
	if err != nil {
		return nil, err
	}

	invoiceID := p.newID("in_")
	firstPeriod := !sub.CurrentPeriodStart.After(sub.CreatedAt)
	issued := &issuedInvoice{}
	lines := make([]model.InvoiceLine, 0, len(items))
	var total int64
	for _, item := range items {
		price, ok := prices[item.PriceID]
		if !ok {
			return nil, domain.ErrPriceNotFound
		}

		var quantity, amount int64
		switch {
		case price.Metered():
			records, err := p.repo.ListUsageRecords(ctx, tx, sub.ID, price.IntegrationID, sub.CurrentPeriodStart.Unix(), until.Unix())
			if err != nil {
				return nil, err
			}
			quantity = accumulate(records)
			amount, err = rate(price, quantity)
			if err != nil {
				return nil, err
			}
		case price.Amount != nil && (price.Recurring || firstPeriod):
			quantity = 1
			amount = *price.Amount
			if price.Recurring {
				issued.recurring += amount
			}
		default:
			continue
		}

		total += amount
		lines = append(lines, model.InvoiceLine{
			ID:        p.newID("il_"),
			InvoiceID: invoiceID,
			PriceID:   price.IntegrationID,
			Quantity:  quantity,
			Amount:    amount,
			CreatedAt: until,
		})
	}

	status := invoiceStatusPaid
	var dueDate *time.Time
	if total > 0 {
		status = invoiceStatusOpen
		due := sub.CurrentPeriodEnd
		dueDate = &due
	}
	row := &model.Invoice{
		ID:              invoiceID,
		SubscriptionID:  sub.ID,
		CustomerID:      sub.CustomerID,
		PeriodStart:     sub.CurrentPeriodStart,
		PeriodEnd:       sub.CurrentPeriodEnd,
		Currency:        sub.Currency,
		Status:          status,
		Total:           total,
		AmountDue:       total,
		AmountPaid:      0,
		AmountRemaining: total,
		DueDate:         dueDate,
		HostedURL:       p.link("invoices", invoiceID),
		CreatedAt:       until,
		UpdatedAt:       until,
	}
	written, err := p.repo.InsertInvoice(ctx, tx, row, lines)
	if err != nil {
		return nil, err
	}
	if !written {
		return nil, nil
	}
	issued.row = row
	return issued, nil
}

// rate prices a metered quantity: tiered prices through their schedule, the
// rest per unit.
func rate(price *domain.Price, quantity int64) (int64, error) {
	if quantity <= 0 {
		return 0, nil
	}
	if price.RevenueModel.Tiered() && len(price.Tiers) > 0 {
		return price.Tiers.Cost(price.RevenueModel, quantity)
	}
	if price.Amount == nil {
		return 0, nil
	}
	return decimal.NewFromInt(*price.Amount).Mul(decimal.NewFromInt(quantity)).IntPart(), nil
}

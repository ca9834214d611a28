package local

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"gorm.io/datatypes"
)

type tierRecord struct {
	Min     int64           `json:"min"`
	Max     *int64          `json:"max,omitempty"`
	PerCall decimal.Decimal `json:"per_call"`
	FlatFee decimal.Decimal `json:"flat_fee"`
}

func encodeTiers(tiers domain.TierSchedule) (datatypes.JSON, error) {
	if len(tiers) == 0 {
		return nil, nil
	}
	records := make([]tierRecord, 0, len(tiers))
	for _, tier := range tiers {
		records = append(records, tierRecord{Min: tier.Min, Max: tier.Max, PerCall: tier.PerCall, FlatFee: tier.FlatFee})
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeTiers(raw datatypes.JSON) (domain.TierSchedule, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var records []tierRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, err
	}
	tiers := make(domain.TierSchedule, 0, len(records))
	for _, record := range records {
		tiers = append(tiers, domain.Tier{Min: record.Min, Max: record.Max, PerCall: record.PerCall, FlatFee: record.FlatFee})
	}
	return tiers, nil
}

func encodeStrings(values []string) (datatypes.JSON, error) {
	if len(values) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func decodeStrings(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func toCustomer(row *model.Customer) *domain.Customer {
	return &domain.Customer{
		IntegrationID: row.ID,
		Name:          row.Name,
		Email:         row.Email,
		Currency:      domain.NormalizeCurrency(row.Currency),
	}
}

func toProduct(row *model.Product) *domain.Product {
	return &domain.Product{
		IntegrationID: row.ID,
		PlanID:        row.PlanID,
		Name:          row.Name,
		Description:   row.Description,
		ImageURL:      row.ImageURL,
		Active:        row.Active,
	}
}

func toPrice(row *model.Price) (*domain.Price, error) {
	tiers, err := decodeTiers(row.Tiers)
	if err != nil {
		return nil, err
	}
	linked, err := decodeStrings(row.LinkedPriceIDs)
	if err != nil {
		return nil, err
	}
	return &domain.Price{
		IntegrationID:         row.ID,
		ProductIntegrationID:  row.ProductID,
		RevenueModel:          domain.ParseRevenueModel(row.RevenueModel),
		Cycle:                 domain.ParseBillingCycle(row.Cycle),
		IntervalCount:         row.IntervalCount,
		Currency:              domain.NormalizeCurrency(row.Currency),
		Recurring:             row.Recurring,
		IncludeTax:            row.IncludeTax,
		LookupKey:             row.LookupKey,
		Amount:                row.Amount,
		AmountDouble:          domain.ToDisplayPtr(row.Amount, row.Currency),
		Tiers:                 tiers,
		MeteringIntegrationID: row.MeteringID,
		LinkedPriceIDs:        linked,
		State:                 domain.PriceState(strings.ToUpper(row.State)),
		CreatedAt:             row.CreatedAt,
	}, nil
}

func toCheckoutSession(row *model.CheckoutSession) *domain.CheckoutSession {
	return &domain.CheckoutSession{
		ID:                    row.ID,
		Mode:                  domain.CheckoutMode(row.Mode),
		Status:                domain.ParseCheckoutStatus(row.Status),
		SubscriptionID:        row.SubscriptionID,
		CustomerIntegrationID: row.CustomerID,
		Currency:              row.Currency,
		Amount:                row.Amount,
		URL:                   row.URL,
		ExpiresAt:             row.ExpiresAt,
	}
}

func toSubscription(row *model.Subscription, items []model.SubscriptionItem) *domain.Subscription {
	sub := &domain.Subscription{
		IntegrationID:         row.ID,
		CustomerIntegrationID: row.CustomerID,
		Currency:              domain.NormalizeCurrency(row.Currency),
		CurrentPeriodStart:    row.CurrentPeriodStart.Unix(),
		CurrentPeriodEnd:      row.CurrentPeriodEnd.Unix(),
		Status:                domain.ParseSubscriptionStatus(row.Status),
	}
	if row.CancelAt != nil {
		at := row.CancelAt.Unix()
		sub.CancelAt = &at
	}
	for _, item := range items {
		sub.Items = append(sub.Items, domain.SubscriptionItem{
			ID:                 item.ID,
			PriceIntegrationID: item.PriceID,
			Metered:            item.Metered,
		})
	}
	return sub
}

func toCreditGrant(row *model.CreditGrant) (*domain.CreditGrant, error) {
	prices, err := decodeStrings(row.Prices)
	if err != nil {
		return nil, err
	}
	return &domain.CreditGrant{
		IntegrationID:         row.ID,
		CustomerIntegrationID: row.CustomerID,
		Amount:                row.Amount,
		AmountDouble:          domain.ToDisplay(row.Amount, row.Currency),
		Remaining:             row.Remaining,
		Currency:              domain.NormalizeCurrency(row.Currency),
		Status:                domain.ParseCreditGrantStatus(row.Status),
		Prices:                prices,
		CheckoutSessionID:     row.CheckoutSessionID,
		CreatedAt:             row.CreatedAt,
	}, nil
}

func toInvoice(row *model.Invoice, lines []model.InvoiceLine) *domain.Invoice {
	invoice := &domain.Invoice{
		ID:              row.ID,
		SubscriptionID:  row.SubscriptionID,
		CustomerID:      row.CustomerID,
		AmountDue:       row.AmountDue,
		AmountPaid:      row.AmountPaid,
		AmountRemaining: row.AmountRemaining,
		Total:           row.Total,
		TotalDouble:     domain.ToDisplay(row.Total, row.Currency),
		Created:         row.CreatedAt.Unix(),
		Currency:        domain.NormalizeCurrency(row.Currency),
		Status:          row.Status,
		HostedURL:       row.HostedURL,
	}
	if row.DueDate != nil {
		due := row.DueDate.Unix()
		invoice.DueDate = &due
	}
	for _, line := range lines {
		invoice.Lines = append(invoice.Lines, domain.InvoiceLine{
			PriceIntegrationID: line.PriceID,
			Quantity:           line.Quantity,
			Amount:             line.Amount,
		})
	}
	return invoice
}

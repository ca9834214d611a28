package local

import (
	"context"
	"strings"

	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"gorm.io/gorm"
)

// RecordUsage stores a usage report once per event id. Reports outside the
// current period are not recorded and yield nil.
func (p *Provider) RecordUsage(ctx context.Context, report domain.UsageReport) (*domain.UsageReport, error) {
	if report.Quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if report.Action != domain.UsageActionIncrement && report.Action != domain.UsageActionSet {
		return nil, domain.ErrInvalidQuantity
	}
	report.PriceIntegrationID = strings.TrimSpace(report.PriceIntegrationID)
	if report.UsageEventID == "" {
		report.UsageEventID = domain.UsageEventID(report.SubscriptionID, report.PriceIntegrationID, report.Timestamp, report.Quantity, report.Action)
	}

	var recorded *domain.UsageReport
	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := p.findSettled(ctx, tx, report.SubscriptionID)
		if err != nil {
			return err
		}
		if sub.Status != string(domain.SubscriptionStatusActive) {
			return nil
		}
		if report.Timestamp < sub.CurrentPeriodStart.Unix() || report.Timestamp > sub.CurrentPeriodEnd.Unix() {
			return nil
		}

		items, err := p.repo.ListSubscriptionItems(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		metered := false
		for _, item := range items {
			if item.PriceID == report.PriceIntegrationID && item.Metered {
				metered = true
				break
			}
		}
		if !metered {
			return domain.ErrNoMeteredPrice
		}

		id := p.genID.Generate()
		_, err = p.repo.InsertUsageRecord(ctx, tx, &model.UsageRecord{
			ID:             report.UsageEventID,
			Seq:            id.Int64(),
			SubscriptionID: sub.ID,
			PriceID:        report.PriceIntegrationID,
			PeriodStart:    sub.CurrentPeriodStart.Unix(),
			OccurredAt:     report.Timestamp,
			Quantity:       report.Quantity,
			Action:         string(report.Action),
			CreatedAt:      p.clock.Now(),
		})
		if err != nil {
			return err
		}
		recorded = &report
		return nil
	})
	if err != nil {
		return nil, p.fail("record_usage", err)
	}
	return recorded, nil
}

func (p *Provider) GetUsageTotal(ctx context.Context, subscriptionID, priceID string, periodStart, periodEnd int64) (*domain.UsageTotal, error) {
	if periodEnd < periodStart {
		return nil, domain.ErrInvalidQuantity
	}
	records, err := p.repo.ListUsageRecords(ctx, p.db, strings.TrimSpace(subscriptionID), strings.TrimSpace(priceID), periodStart, periodEnd)
	if err != nil {
		return nil, p.fail("get_usage_total", err)
	}
	return &domain.UsageTotal{
		SubscriptionID:     subscriptionID,
		PriceIntegrationID: priceID,
		PeriodStart:        periodStart,
		PeriodEnd:          periodEnd,
		Total:              accumulate(records),
	}, nil
}

// accumulate folds ordered usage records: set replaces the running total,
// increment adds to it.
func accumulate(records []model.UsageRecord) int64 {
	var total int64
	for _, record := range records {
		switch domain.UsageAction(record.Action) {
		case domain.UsageActionSet:
			total = record.Quantity
		default:
			total += record.Quantity
		}
	}
	return total
}

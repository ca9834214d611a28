package domain

import (
	"context"

	"github.com/smallbiznis/monetization/pkg/monetization/domain"
)

// UsageRequest reports metered consumption against a subscription.
// Timestamp is epoch seconds and is required. LookupKey selects the metered
// price when the subscription carries more than one.
type UsageRequest struct {
	SubscriptionID        string
	Quantity              int64
	Timestamp             int64
	SetInsteadOfIncrement bool
	LookupKey             *string
}

type Service interface {
	ReportMeteredUsage(ctx context.Context, req UsageRequest) (*domain.UsageReport, error)
	GetMeteredUsageTotal(ctx context.Context, subscriptionID string, lookupKey *string) (*domain.UsageTotal, error)
}

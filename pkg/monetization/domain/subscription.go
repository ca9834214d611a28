package domain

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusInactive  SubscriptionStatus = "INACTIVE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusUnknown   SubscriptionStatus = "UNKNOWN"
)

// ParseSubscriptionStatus maps provider vocabulary onto a subscription status.
// Unrecognized values map to UNKNOWN.
func ParseSubscriptionStatus(value string) SubscriptionStatus {
	switch normalizeEnum(value) {
	case "ACTIVE", "TRIALING", "PAST_DUE":
		return SubscriptionStatusActive
	case "CANCELLED", "CANCELED", "ENDED":
		return SubscriptionStatusCancelled
	case "INACTIVE", "INCOMPLETE", "INCOMPLETE_EXPIRED", "PAUSED", "UNPAID":
		return SubscriptionStatusInactive
	default:
		return SubscriptionStatusUnknown
	}
}

type SubscriptionItem struct {
	ID                 string
	PriceIntegrationID string
	Metered            bool
}

// Subscription is a snapshot of the provider record. Period bounds and CancelAt
// are epoch seconds.
type Subscription struct {
	IntegrationID         string
	CustomerIntegrationID string
	Currency              string
	CurrentPeriodStart    int64
	CurrentPeriodEnd      int64
	CancelAt              *int64
	Status                SubscriptionStatus
	Items                 []SubscriptionItem
}

func (s Subscription) Active() bool { return s.Status == SubscriptionStatusActive }

func (s Subscription) Cancelled() bool { return s.Status == SubscriptionStatusCancelled }

// InCurrentPeriod reports whether ts (epoch seconds) lies within the period, bounds inclusive.
func (s Subscription) InCurrentPeriod(ts int64) bool {
	return ts >= s.CurrentPeriodStart && ts <= s.CurrentPeriodEnd
}

// MeteredItems returns the items usage can be reported against.
func (s Subscription) MeteredItems() []SubscriptionItem {
	var items []SubscriptionItem
	for _, item := range s.Items {
		if item.Metered {
			items = append(items, item)
		}
	}
	return items
}

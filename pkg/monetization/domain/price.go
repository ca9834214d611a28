// Package domain contains the provider-neutral value model shared by the
// monetization engines and the providers behind them.
package domain

import (
	"strings"
	"time"
)

type RevenueModel string

const (
	RevenueModelOneTime         RevenueModel = "ONETIME"
	RevenueModelRecurring       RevenueModel = "RECURRING"
	RevenueModelFlatFee         RevenueModel = "FLAT_FEE"
	RevenueModelGraduated       RevenueModel = "GRADUATED"
	RevenueModelVolume          RevenueModel = "VOLUME"
	RevenueModelFree            RevenueModel = "FREE"
	RevenueModelContract        RevenueModel = "CONTRACT"
	RevenueModelFlatFeeOverage  RevenueModel = "FLAT_FEE_OVERAGE"
	RevenueModelPrepaidBurnDown RevenueModel = "PREPAID_BURN_DOWN"
)

// ParseRevenueModel maps provider vocabulary onto a known revenue model.
// Unrecognized values fall back to RECURRING.
func ParseRevenueModel(value string) RevenueModel {
	switch normalizeEnum(value) {
	case "ONETIME", "ONE_TIME":
		return RevenueModelOneTime
	case "RECURRING":
		return RevenueModelRecurring
	case "FLAT_FEE", "FLAT":
		return RevenueModelFlatFee
	case "GRADUATED", "TIERED_GRADUATED":
		return RevenueModelGraduated
	case "VOLUME", "TIERED_VOLUME":
		return RevenueModelVolume
	case "FREE":
		return RevenueModelFree
	case "CONTRACT":
		return RevenueModelContract
	case "FLAT_FEE_OVERAGE":
		return RevenueModelFlatFeeOverage
	case "PREPAID_BURN_DOWN", "PREPAID":
		return RevenueModelPrepaidBurnDown
	default:
		return RevenueModelRecurring
	}
}

// Tiered reports whether the model is evaluated through a tier schedule.
func (m RevenueModel) Tiered() bool {
	return m == RevenueModelGraduated || m == RevenueModelVolume
}

// Metered reports whether usage is reported against prices of this model.
func (m RevenueModel) Metered() bool {
	switch m {
	case RevenueModelGraduated, RevenueModelVolume, RevenueModelFlatFeeOverage, RevenueModelPrepaidBurnDown:
		return true
	default:
		return false
	}
}

type BillingCycle string

const (
	CycleMonth   BillingCycle = "MONTH"
	CycleYear    BillingCycle = "YEAR"
	CycleMonthly BillingCycle = "MONTHLY"
	CycleYearly  BillingCycle = "YEARLY"
	CycleNone    BillingCycle = "NONE"
)

// ParseBillingCycle maps provider vocabulary onto a billing cycle, NONE when unknown.
func ParseBillingCycle(value string) BillingCycle {
	switch normalizeEnum(value) {
	case "MONTH":
		return CycleMonth
	case "YEAR":
		return CycleYear
	case "MONTHLY":
		return CycleMonthly
	case "YEARLY", "ANNUAL", "ANNUALLY":
		return CycleYearly
	default:
		return CycleNone
	}
}

// AddTo advances t by count cycles. Cycles without a period return t unchanged.
func (c BillingCycle) AddTo(t time.Time, count int64) time.Time {
	if count < 1 {
		count = 1
	}
	switch c {
	case CycleMonth, CycleMonthly:
		return t.AddDate(0, int(count), 0)
	case CycleYear, CycleYearly:
		return t.AddDate(int(count), 0, 0)
	default:
		return t
	}
}

type PriceState string

const (
	PriceStateActive   PriceState = "ACTIVE"
	PriceStateArchived PriceState = "ARCHIVED"
)

// PriceSpec is the input for creating a price. Updating a price takes a full
// spec too because prices are replaced rather than patched.
type PriceSpec struct {
	RevenueModel          RevenueModel
	Cycle                 BillingCycle
	IntervalCount         int64
	ProductIntegrationID  string
	Currency              string
	Recurring             bool
	IncludeTax            bool
	LookupKey             *string
	Amount                *int64
	Tiers                 TierSchedule
	MeteringIntegrationID *string
	LinkedPriceIDs        []string
}

// Price is a provider price snapshot. It is never modified after creation;
// archiving produces a new snapshot with State ARCHIVED.
type Price struct {
	IntegrationID         string
	ProductIntegrationID  string
	RevenueModel          RevenueModel
	Cycle                 BillingCycle
	IntervalCount         int64
	Currency              string
	Recurring             bool
	IncludeTax            bool
	LookupKey             *string
	Amount                *int64
	AmountDouble          *float64
	Tiers                 TierSchedule
	MeteringIntegrationID *string
	LinkedPriceIDs        []string
	State                 PriceState
	CreatedAt             time.Time
}

func (p Price) Active() bool { return p.State == PriceStateActive }

// Metered reports whether usage can be reported against the price.
func (p Price) Metered() bool {
	if p.MeteringIntegrationID != nil && strings.TrimSpace(*p.MeteringIntegrationID) != "" {
		return true
	}
	return p.RevenueModel.Metered()
}

// LookupKeyValue returns the lookup key or an empty string.
func (p Price) LookupKeyValue() string {
	if p.LookupKey == nil {
		return ""
	}
	return *p.LookupKey
}

func normalizeEnum(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	return strings.ReplaceAll(value, "-", "_")
}

package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseEnumsFallBackToClosestValue(t *testing.T) {
	assert.Equal(t, SubscriptionStatusActive, ParseSubscriptionStatus("trialing"))
	assert.Equal(t, SubscriptionStatusActive, ParseSubscriptionStatus("past_due"))
	assert.Equal(t, SubscriptionStatusCancelled, ParseSubscriptionStatus("canceled"))
	assert.Equal(t, SubscriptionStatusInactive, ParseSubscriptionStatus("paused"))
	assert.Equal(t, SubscriptionStatusUnknown, ParseSubscriptionStatus("something_new"))

	assert.Equal(t, AccountStatusOK, ParseAccountStatus(" ok "))
	assert.Equal(t, AccountStatusError, ParseAccountStatus("rejected.fraud"))

	assert.Equal(t, RequirementPastDue, ParseRequirementStatus("past-due"))
	assert.Equal(t, RequirementCurrentlyDue, ParseRequirementStatus(""))

	assert.Equal(t, CycleYearly, ParseBillingCycle("annual"))
	assert.Equal(t, CycleNone, ParseBillingCycle("fortnight"))

	assert.Equal(t, RevenueModelGraduated, ParseRevenueModel("tiered_graduated"))
	assert.Equal(t, RevenueModelRecurring, ParseRevenueModel("per_seat"))

	assert.Equal(t, CheckoutStatusComplete, ParseCheckoutStatus("complete"))
	assert.Equal(t, CheckoutStatusExpired, ParseCheckoutStatus("weird"))

	assert.Equal(t, CreditGrantAvailable, ParseCreditGrantStatus("available"))
	assert.Equal(t, CreditGrantPending, ParseCreditGrantStatus("?"))
}

func TestBillingCycleAddTo(t *testing.T) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), CycleMonth.AddTo(start, 1))
	assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), CycleMonthly.AddTo(start, 3))
	assert.Equal(t, time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC), CycleYearly.AddTo(start, 0))
	assert.Equal(t, start, CycleNone.AddTo(start, 1))
}

func TestUsageEventIDIsStable(t *testing.T) {
	a := UsageEventID("sub_1", "price_1", 1700000000, 5, UsageActionIncrement)
	b := UsageEventID("sub_1", "price_1", 1700000000, 5, UsageActionIncrement)
	c := UsageEventID("sub_1", "price_1", 1700000000, 5, UsageActionSet)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 35)
	assert.Equal(t, "ue_", a[:3])
}

func TestSubscriptionHelpers(t *testing.T) {
	sub := Subscription{
		CurrentPeriodStart: 100,
		CurrentPeriodEnd:   200,
		Status:             SubscriptionStatusActive,
		Items: []SubscriptionItem{
			{ID: "si_1", PriceIntegrationID: "p_flat"},
			{ID: "si_2", PriceIntegrationID: "p_calls", Metered: true},
		},
	}

	assert.True(t, sub.InCurrentPeriod(100))
	assert.True(t, sub.InCurrentPeriod(200))
	assert.False(t, sub.InCurrentPeriod(201))
	assert.Len(t, sub.MeteredItems(), 1)
}

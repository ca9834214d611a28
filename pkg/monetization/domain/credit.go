package domain

import "time"

type CreditGrantStatus string

const (
	CreditGrantPending   CreditGrantStatus = "pending"
	CreditGrantAvailable CreditGrantStatus = "available"
	CreditGrantVoided    CreditGrantStatus = "voided"
)

// ParseCreditGrantStatus maps provider vocabulary, pending when unknown.
func ParseCreditGrantStatus(value string) CreditGrantStatus {
	switch normalizeEnum(value) {
	case "AVAILABLE", "ACTIVE":
		return CreditGrantAvailable
	case "VOIDED", "VOID", "EXPIRED":
		return CreditGrantVoided
	default:
		return CreditGrantPending
	}
}

type CreditGrant struct {
	IntegrationID         string
	CustomerIntegrationID string
	Amount                int64
	AmountDouble          float64
	Remaining             int64
	Currency              string
	Status                CreditGrantStatus
	Prices                []string
	CheckoutSessionID     *string
	CreatedAt             time.Time
}

// AppliesTo reports whether the grant may pay for priceID. A grant with no
// price restriction applies to every price.
func (g CreditGrant) AppliesTo(priceID string) bool {
	if len(g.Prices) == 0 {
		return true
	}
	for _, id := range g.Prices {
		if id == priceID {
			return true
		}
	}
	return false
}

// Balance summarizes the credit of one customer in one currency.
type Balance struct {
	CustomerIntegrationID string
	Currency              string
	AvailableCredit       int64
	AvailableCreditDouble float64
	TotalCredit           int64
	TotalCreditDouble     float64
	Balance               int64
	BalanceDouble         float64
}

// NewBalance builds a balance with available credit clamped into [0, total].
// adjustment is the pending correction (for example a proration credit from a
// cancelled subscription) by which the balance may diverge from available credit.
func NewBalance(customerID, currency string, available, total, adjustment int64) Balance {
	if total < 0 {
		total = 0
	}
	if available < 0 {
		available = 0
	}
	if available > total {
		available = total
	}
	return Balance{
		CustomerIntegrationID: customerID,
		Currency:              NormalizeCurrency(currency),
		AvailableCredit:       available,
		AvailableCreditDouble: ToDisplay(available, currency),
		TotalCredit:           total,
		TotalCreditDouble:     ToDisplay(total, currency),
		Balance:               available + adjustment,
		BalanceDouble:         ToDisplay(available+adjustment, currency),
	}
}

// CreditGrantInput is a ledger append request.
type CreditGrantInput struct {
	CustomerIntegrationID string
	Amount                int64
	Currency              string
	Prices                []string
	CheckoutSessionID     *string
}

// GrantListQuery pages through credit grants newest first.
type GrantListQuery struct {
	CustomerIntegrationID string
	Limit                 int
	Before                *string
	After                 *string
}

// CreditApplication is one grant's contribution to paying an invoice.
type CreditApplication struct {
	GrantIntegrationID string
	Amount             int64
}

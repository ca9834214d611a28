package domain

import "time"

type CheckoutMode string

const (
	CheckoutModeSubscription CheckoutMode = "SUBSCRIPTION"
	CheckoutModeCreditPack   CheckoutMode = "CREDIT_PACK"
)

type CheckoutStatus string

const (
	CheckoutStatusOpen     CheckoutStatus = "OPEN"
	CheckoutStatusComplete CheckoutStatus = "COMPLETE"
	CheckoutStatusExpired  CheckoutStatus = "EXPIRED"
)

// ParseCheckoutStatus maps provider vocabulary, EXPIRED when unknown.
func ParseCheckoutStatus(value string) CheckoutStatus {
	switch normalizeEnum(value) {
	case "OPEN", "PENDING":
		return CheckoutStatusOpen
	case "COMPLETE", "COMPLETED", "PAID":
		return CheckoutStatusComplete
	default:
		return CheckoutStatusExpired
	}
}

// CheckoutSession is a hosted payment page. Amount is set for credit packs
// only.
type CheckoutSession struct {
	ID                    string
	Mode                  CheckoutMode
	Status                CheckoutStatus
	SubscriptionID        *string
	CustomerIntegrationID string
	Currency              string
	Amount                *int64
	URL                   string
	ExpiresAt             time.Time
}

func (c CheckoutSession) Open() bool { return c.Status == CheckoutStatusOpen }

func (c CheckoutSession) Completed() bool { return c.Status == CheckoutStatusComplete }

// SubscriptionCheckoutInput is what a provider needs to open a subscription checkout.
type SubscriptionCheckoutInput struct {
	CustomerIntegrationID string
	ProductIntegrationID  string
	PriceIntegrationIDs   []string
	Currency              string
	ReturnURLBase         string
	ExpiresAt             time.Time
}

// CreditPackCheckoutInput is what a provider needs to open a credit-pack checkout.
type CreditPackCheckoutInput struct {
	CustomerIntegrationID string
	Amount                int64
	Currency              string
	ReturnURLBase         string
	ExpiresAt             time.Time
}

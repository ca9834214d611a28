package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

type UsageAction string

const (
	UsageActionIncrement UsageAction = "increment"
	UsageActionSet       UsageAction = "set"
)

type UsageReport struct {
	SubscriptionID     string
	PriceIntegrationID string
	UsageEventID       string
	Quantity           int64
	Timestamp          int64
	Action             UsageAction
}

// UsageTotal is the accumulated quantity for one price over a billing period.
type UsageTotal struct {
	SubscriptionID     string
	PriceIntegrationID string
	PeriodStart        int64
	PeriodEnd          int64
	Total              int64
}

// UsageEventID derives a stable identifier so a retried report is recorded once.
func UsageEventID(subscriptionID, priceID string, timestamp, quantity int64, action UsageAction) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d|%d|%s", subscriptionID, priceID, timestamp, quantity, action)))
	return "ue_" + hex.EncodeToString(sum[:])[:32]
}

// Package model holds the gorm records persisted by the local billing provider.
package model

import (
	"time"

	"gorm.io/datatypes"
)

type Account struct {
	ID             string         `gorm:"primaryKey;size:64"`
	OrganizationID string         `gorm:"size:128;not null"`
	LinkedBy       string         `gorm:"size:128"`
	Status         string         `gorm:"size:32;not null"`
	ChargesEnabled bool           `gorm:"not null;default:false"`
	PayoutsEnabled bool           `gorm:"not null;default:false"`
	Livemode       bool           `gorm:"not null;default:false"`
	Requirements   datatypes.JSON `gorm:""`
	DisabledReason *string        `gorm:"size:255"`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
}

func (Account) TableName() string { return "local_accounts" }

type Customer struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"size:255;not null"`
	Email     string    `gorm:"size:255;not null;index"`
	Currency  string    `gorm:"size:8;not null;default:'NONE'"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Customer) TableName() string { return "local_customers" }

type Product struct {
	ID          string    `gorm:"primaryKey;size:128"`
	PlanID      string    `gorm:"size:128;not null;index"`
	Name        string    `gorm:"size:255;not null"`
	Description string    `gorm:"type:text"`
	ImageURL    string    `gorm:"size:1024"`
	Active      bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (Product) TableName() string { return "local_products" }

type Price struct {
	ID             string         `gorm:"primaryKey;size:64"`
	Seq            int64          `gorm:"not null;index"`
	ProductID      string         `gorm:"size:128;not null;index"`
	RevenueModel   string         `gorm:"size:32;not null"`
	Cycle          string         `gorm:"size:16;not null"`
	IntervalCount  int64          `gorm:"not null;default:1"`
	Currency       string         `gorm:"size:8;not null"`
	Recurring      bool           `gorm:"not null;default:false"`
	IncludeTax     bool           `gorm:"not null;default:false"`
	LookupKey      *string        `gorm:"size:255;index"`
	Amount         *int64         `gorm:""`
	Tiers          datatypes.JSON `gorm:""`
	MeteringID     *string        `gorm:"size:128"`
	LinkedPriceIDs datatypes.JSON `gorm:""`
	State          string         `gorm:"size:16;not null;index"`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
}

func (Price) TableName() string { return "local_prices" }

type CheckoutSession struct {
	ID             string         `gorm:"primaryKey;size:64"`
	Mode           string         `gorm:"size:16;not null"`
	Status         string         `gorm:"size:16;not null;index"`
	CustomerID     string         `gorm:"size:64;not null;index"`
	ProductID      *string        `gorm:"size:128"`
	PriceIDs       datatypes.JSON `gorm:""`
	Currency       string         `gorm:"size:8;not null"`
	Amount         *int64         `gorm:""`
	SubscriptionID *string        `gorm:"size:64"`
	ReturnURL      string         `gorm:"size:1024"`
	URL            string         `gorm:"size:1024;not null"`
	ExpiresAt      time.Time      `gorm:"not null"`
	CompletedAt    *time.Time     `gorm:""`
	CreatedAt      time.Time      `gorm:"not null"`
	UpdatedAt      time.Time      `gorm:"not null"`
}

func (CheckoutSession) TableName() string { return "local_checkout_sessions" }

type Subscription struct {
	ID                 string     `gorm:"primaryKey;size:64"`
	CustomerID         string     `gorm:"size:64;not null;index"`
	CheckoutSessionID  *string    `gorm:"size:64;uniqueIndex"`
	Currency           string     `gorm:"size:8;not null"`
	Status             string     `gorm:"size:16;not null;index"`
	Cycle              string     `gorm:"size:16;not null"`
	IntervalCount      int64      `gorm:"not null;default:1"`
	CurrentPeriodStart time.Time  `gorm:"not null"`
	CurrentPeriodEnd   time.Time  `gorm:"not null"`
	CancelAt           *time.Time `gorm:""`
	CanceledAt         *time.Time `gorm:""`
	CreatedAt          time.Time  `gorm:"not null"`
	UpdatedAt          time.Time  `gorm:"not null"`
}

func (Subscription) TableName() string { return "local_subscriptions" }

type SubscriptionItem struct {
	ID             string    `gorm:"primaryKey;size:64"`
	SubscriptionID string    `gorm:"size:64;not null;index"`
	PriceID        string    `gorm:"size:64;not null"`
	Metered        bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (SubscriptionItem) TableName() string { return "local_subscription_items" }

type UsageRecord struct {
	ID             string    `gorm:"primaryKey;size:64"`
	Seq            int64     `gorm:"not null"`
	SubscriptionID string    `gorm:"size:64;not null;index:ix_local_usage_window,priority:1"`
	PriceID        string    `gorm:"size:64;not null;index:ix_local_usage_window,priority:2"`
	PeriodStart    int64     `gorm:"not null;index:ix_local_usage_window,priority:3"` // period the record was accepted into
	OccurredAt     int64     `gorm:"not null;index:ix_local_usage_window,priority:4"`
	Quantity       int64     `gorm:"not null"`
	Action         string    `gorm:"size:16;not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (UsageRecord) TableName() string { return "local_usage_records" }

type CreditGrant struct {
	ID                string         `gorm:"primaryKey;size:64"`
	Seq               int64          `gorm:"not null;index"`
	CustomerID        string         `gorm:"size:64;not null;index"`
	Amount            int64          `gorm:"not null"`
	Remaining         int64          `gorm:"not null"`
	Currency          string         `gorm:"size:8;not null"`
	Status            string         `gorm:"size:16;not null"`
	Prices            datatypes.JSON `gorm:""`
	CheckoutSessionID *string        `gorm:"size:64;uniqueIndex"`
	CreatedAt         time.Time      `gorm:"not null"`
}

func (CreditGrant) TableName() string { return "local_credit_grants" }

type CreditConsumption struct {
	ID        string    `gorm:"primaryKey;size:64"`
	GrantID   string    `gorm:"size:64;not null;index"`
	InvoiceID string    `gorm:"size:64;not null;index"`
	Amount    int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (CreditConsumption) TableName() string { return "local_credit_consumptions" }

// BalanceAdjustment is a pending correction applied on top of available credit.
type BalanceAdjustment struct {
	ID             string    `gorm:"primaryKey;size:64"`
	CustomerID     string    `gorm:"size:64;not null;index"`
	SubscriptionID string    `gorm:"size:64;not null"`
	Currency       string    `gorm:"size:8;not null"`
	Amount         int64     `gorm:"not null"`
	Reason         string    `gorm:"size:64;not null"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (BalanceAdjustment) TableName() string { return "local_balance_adjustments" }

type Invoice struct {
	ID              string     `gorm:"primaryKey;size:64"`
	SubscriptionID  string     `gorm:"size:64;not null;uniqueIndex:ux_local_invoice_period,priority:1"`
	CustomerID      string     `gorm:"size:64;not null;index"`
	PeriodStart     time.Time  `gorm:"not null;uniqueIndex:ux_local_invoice_period,priority:2"`
	PeriodEnd       time.Time  `gorm:"not null"`
	Currency        string     `gorm:"size:8;not null"`
	Status          string     `gorm:"size:16;not null"`
	Total           int64      `gorm:"not null"`
	AmountDue       int64      `gorm:"not null"`
	AmountPaid      int64      `gorm:"not null"`
	AmountRemaining int64      `gorm:"not null"`
	DueDate         *time.Time `gorm:""`
	HostedURL       string     `gorm:"size:1024"`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

func (Invoice) TableName() string { return "local_invoices" }

type InvoiceLine struct {
	ID        string    `gorm:"primaryKey;size:64"`
	InvoiceID string    `gorm:"size:64;not null;index"`
	PriceID   string    `gorm:"size:64;not null"`
	Quantity  int64     `gorm:"not null"`
	Amount    int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (InvoiceLine) TableName() string { return "local_invoice_lines" }

type PortalConfiguration struct {
	ID                string    `gorm:"primaryKey;size:64"`
	PrivacyPolicyURL  string    `gorm:"size:1024;not null"`
	TermsOfServiceURL string    `gorm:"size:1024;not null"`
	CreatedAt         time.Time `gorm:"not null"`
}

func (PortalConfiguration) TableName() string { return "local_portal_configurations" }

// All lists every model for schema management.
func All() []any {
	return []any{
		&Account{},
		&Customer{},
		&Product{},
		&Price{},
		&CheckoutSession{},
		&Subscription{},
		&SubscriptionItem{},
		&UsageRecord{},
		&CreditGrant{},
		&CreditConsumption{},
		&BalanceAdjustment{},
		&Invoice{},
		&InvoiceLine{},
		&PortalConfiguration{},
	}
}

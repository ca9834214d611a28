package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"gorm.io/gorm"
)

// Repository reads and writes local provider records. Finders return nil, nil
// when no row matches.
type Repository interface {
	FindAccount(ctx context.Context, db *gorm.DB) (*model.Account, error)
	SaveAccount(ctx context.Context, db *gorm.DB, account *model.Account) error
	DeleteAccounts(ctx context.Context, db *gorm.DB) error

	InsertCustomer(ctx context.Context, db *gorm.DB, customer *model.Customer) error
	FindCustomer(ctx context.Context, db *gorm.DB, id string) (*model.Customer, error)
	FixCustomerCurrency(ctx context.Context, db *gorm.DB, id, currency string, now time.Time) (bool, error)

	InsertProduct(ctx context.Context, db *gorm.DB, product *model.Product) error
	FindProduct(ctx context.Context, db *gorm.DB, id string) (*model.Product, error)
	UpdateProduct(ctx context.Context, db *gorm.DB, product *model.Product) error

	InsertPrice(ctx context.Context, db *gorm.DB, price *model.Price) error
	FindPrice(ctx context.Context, db *gorm.DB, id string) (*model.Price, error)
	FindPrices(ctx context.Context, db *gorm.DB, ids []string) ([]model.Price, error)
	FindActivePriceByLookupKey(ctx context.Context, db *gorm.DB, key string) (*model.Price, error)
	UpdatePriceState(ctx context.Context, db *gorm.DB, id, state string, now time.Time) error

	InsertCheckoutSession(ctx context.Context, db *gorm.DB, session *model.CheckoutSession) error
	FindCheckoutSession(ctx context.Context, db *gorm.DB, id string) (*model.CheckoutSession, error)
	UpdateCheckoutSession(ctx context.Context, db *gorm.DB, session *model.CheckoutSession) error

	InsertSubscription(ctx context.Context, db *gorm.DB, subscription *model.Subscription, items []model.SubscriptionItem) error
	FindSubscription(ctx context.Context, db *gorm.DB, id string) (*model.Subscription, error)
	ListSubscriptionItems(ctx context.Context, db *gorm.DB, subscriptionID string) ([]model.SubscriptionItem, error)
	UpdateSubscription(ctx context.Context, db *gorm.DB, subscription *model.Subscription) error
	UpdateSubscriptionItemPrice(ctx context.Context, db *gorm.DB, itemID, priceID string, metered bool) error
	ListDueSubscriptions(ctx context.Context, db *gorm.DB, before time.Time) ([]model.Subscription, error)
	CountActiveSubscriptions(ctx context.Context, db *gorm.DB, customerID string) (int64, error)

	InsertUsageRecord(ctx context.Context, db *gorm.DB, record *model.UsageRecord) (bool, error)
	FindUsageRecord(ctx context.Context, db *gorm.DB, id string) (*model.UsageRecord, error)
	ListUsageRecords(ctx context.Context, db *gorm.DB, subscriptionID, priceID string, periodStart, until int64) ([]model.UsageRecord, error)

	InsertCreditGrant(ctx context.Context, db *gorm.DB, grant *model.CreditGrant) error
	FindCreditGrant(ctx context.Context, db *gorm.DB, id string) (*model.CreditGrant, error)
	FindCreditGrantByCheckoutSession(ctx context.Context, db *gorm.DB, sessionID string) (*model.CreditGrant, error)
	ListCreditGrants(ctx context.Context, db *gorm.DB, query GrantQuery) ([]model.CreditGrant, error)
	ListAvailableCreditGrants(ctx context.Context, db *gorm.DB, customerID, currency string) ([]model.CreditGrant, error)
	DebitCreditGrant(ctx context.Context, db *gorm.DB, id string, amount int64) (bool, error)
	InsertCreditConsumption(ctx context.Context, db *gorm.DB, consumption *model.CreditConsumption) error
	SumCreditByCurrency(ctx context.Context, db *gorm.DB, customerID string) ([]CreditSum, error)
	CountCreditGrants(ctx context.Context, db *gorm.DB, customerID string) (int64, error)

	InsertBalanceAdjustment(ctx context.Context, db *gorm.DB, adjustment *model.BalanceAdjustment) error
	SumBalanceAdjustments(ctx context.Context, db *gorm.DB, customerID string) (map[string]int64, error)

	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *model.Invoice, lines []model.InvoiceLine) (bool, error)
	FindInvoice(ctx context.Context, db *gorm.DB, id string) (*model.Invoice, error)
	ListInvoiceLines(ctx context.Context, db *gorm.DB, invoiceID string) ([]model.InvoiceLine, error)
	ListInvoicesBySubscription(ctx context.Context, db *gorm.DB, subscriptionID string) ([]model.Invoice, error)
	UpdateInvoice(ctx context.Context, db *gorm.DB, invoice *model.Invoice) error

	InsertPortalConfiguration(ctx context.Context, db *gorm.DB, cfg *model.PortalConfiguration) error
}

// GrantQuery pages grants newest first. BeforeSeq selects grants newer than
// the cursor, AfterSeq grants older than it.
type GrantQuery struct {
	CustomerID string
	Limit      int
	BeforeSeq  *int64
	AfterSeq   *int64
}

type CreditSum struct {
	Currency  string
	Available int64
	Total     int64
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

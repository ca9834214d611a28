package domain

import (
	"context"

	"github.com/smallbiznis/monetization/pkg/monetization/domain"
)

// CreditPackRequest asks for a hosted checkout that sells Amount of credit.
type CreditPackRequest struct {
	ReturnURLBase string
	CustomerID    string
	Amount        int64
	Currency      string
}

type Service interface {
	GrantCreditToCustomer(ctx context.Context, customerID string, amount int64, currency string, checkoutSessionID *string) (string, error)
	ListCreditGrants(ctx context.Context, customerID string, limit int, before, after *string) ([]domain.CreditGrant, error)
	RetrieveCreditBalances(ctx context.Context, customerID string) ([]domain.Balance, error)
	ApplyCreditToInvoice(ctx context.Context, invoiceID string) (int64, error)
	CheckoutCreditPack(ctx context.Context, req CreditPackRequest) (*domain.CheckoutSession, error)
	FulfillCreditPackCheckout(ctx context.Context, checkoutSessionID string) (string, error)
}

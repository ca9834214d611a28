package domain

import (
	"context"

	"github.com/smallbiznis/monetization/pkg/monetization/domain"
)

type Service interface {
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	CreateCustomer(ctx context.Context, email, name string) (*domain.Customer, error)
	GetEndCustomerBillingPortalLink(ctx context.Context, customerID, subscriptionID string) (string, error)
	CreateBillingPortalConfiguration(ctx context.Context, privacyPolicyURL, termsOfServiceURL string) (string, error)
}

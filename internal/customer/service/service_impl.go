package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	customerdomain "github.com/smallbiznis/monetization/internal/customer/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Customers provider.CustomerGateway
}

type Service struct {
	log       *zap.Logger
	customers provider.CustomerGateway
}

func New(p Params) customerdomain.Service {
	return &Service{
		log:       p.Log.Named("customer.service"),
		customers: p.Customers,
	}
}

func (s *Service) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	return s.customers.GetCustomer(ctx, id)
}

func (s *Service) CreateCustomer(ctx context.Context, email, name string) (*domain.Customer, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email %q", domain.ErrInvalidID, email)
	}

	customer, err := s.customers.CreateCustomer(ctx, email, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	s.log.Info("customer created", zap.String("customer_id", customer.IntegrationID))
	return customer, nil
}

// GetEndCustomerBillingPortalLink returns a self-service portal URL, scoped
// to one subscription when subscriptionID is set.
func (s *Service) GetEndCustomerBillingPortalLink(ctx context.Context, customerID, subscriptionID string) (string, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return "", domain.ErrInvalidID
	}
	return s.customers.GetBillingPortalLink(ctx, customerID, strings.TrimSpace(subscriptionID))
}

func (s *Service) CreateBillingPortalConfiguration(ctx context.Context, privacyPolicyURL, termsOfServiceURL string) (string, error) {
	for _, raw := range []string{privacyPolicyURL, termsOfServiceURL} {
		if !validURL(raw) {
			return "", fmt.Errorf("%w: url %q", domain.ErrInvalidID, raw)
		}
	}
	return s.customers.CreateBillingPortalConfiguration(ctx, strings.TrimSpace(privacyPolicyURL), strings.TrimSpace(termsOfServiceURL))
}

func validURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

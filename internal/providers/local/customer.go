package local

import (
	"context"
	"net/url"
	"strings"

	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
)

func (p *Provider) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row, err := p.repo.FindCustomer(ctx, p.db, id)
	if err != nil {
		return nil, p.fail("get_customer", err)
	}
	if row == nil {
		return nil, nil
	}
	return toCustomer(row), nil
}

func (p *Provider) CreateCustomer(ctx context.Context, email, name string) (*domain.Customer, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidID
	}

	now := p.clock.Now()
	row := &model.Customer{
		ID:        p.newID("cus_"),
		Name:      name,
		Email:     email,
		Currency:  domain.CurrencyNone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.repo.InsertCustomer(ctx, p.db, row); err != nil {
		return nil, p.fail("create_customer", err)
	}
	return toCustomer(row), nil
}

func (p *Provider) GetBillingPortalLink(ctx context.Context, customerID, subscriptionID string) (string, error) {
	customer, err := p.repo.FindCustomer(ctx, p.db, strings.TrimSpace(customerID))
	if err != nil {
		return "", p.fail("get_billing_portal_link", err)
	}
	if customer == nil {
		return "", domain.ErrCustomerNotFound
	}

	link := p.link("billing", customer.ID)
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return link, nil
	}
	sub, err := p.repo.FindSubscription(ctx, p.db, subscriptionID)
	if err != nil {
		return "", p.fail("get_billing_portal_link", err)
	}
	if sub == nil || sub.CustomerID != customer.ID {
		return "", domain.ErrSubscriptionNotFound
	}
	return link + "?" + url.Values{"subscription": []string{sub.ID}}.Encode(), nil
}

func (p *Provider) CreateBillingPortalConfiguration(ctx context.Context, privacyPolicyURL, termsOfServiceURL string) (string, error) {
	for _, raw := range []string{privacyPolicyURL, termsOfServiceURL} {
		parsed, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return "", domain.ErrInvalidID
		}
	}
	row := &model.PortalConfiguration{
		ID:                p.newID("bpc_"),
		PrivacyPolicyURL:  strings.TrimSpace(privacyPolicyURL),
		TermsOfServiceURL: strings.TrimSpace(termsOfServiceURL),
		CreatedAt:         p.clock.Now(),
	}
	if err := p.repo.InsertPortalConfiguration(ctx, p.db, row); err != nil {
		return "", p.fail("create_portal_configuration", err)
	}
	return row.ID, nil
}

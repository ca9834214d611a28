package local

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/smallbiznis/monetization/internal/providers/local/model"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"gorm.io/datatypes"
)

const accountType = "local"

var onboardingRequirements = []domain.Requirement{
	{Name: "business_profile", Status: domain.RequirementCurrentlyDue},
	{Name: "external_account", Status: domain.RequirementCurrentlyDue},
}

func (p *Provider) CreateAccount(ctx context.Context, link domain.AccountLinkData) (string, error) {
	orgID := strings.TrimSpace(link.OrganisationObjectID)
	userID := strings.TrimSpace(link.UserObjectID)
	if orgID == "" || userID == "" {
		return "", domain.ErrInvalidID
	}

	account, err := p.repo.FindAccount(ctx, p.db)
	if err != nil {
		return "", p.fail("create_account", err)
	}

	now := p.clock.Now()
	if account == nil {
		requirements, err := json.Marshal(onboardingRequirements)
		if err != nil {
			return "", p.fail("create_account", err)
		}
		account = &model.Account{
			ID:           p.accountID,
			Status:       string(domain.AccountStatusPendingAction),
			Requirements: datatypes.JSON(requirements),
			CreatedAt:    now,
		}
	}
	account.OrganizationID = orgID
	account.LinkedBy = userID
	account.UpdatedAt = now

	if err := p.repo.SaveAccount(ctx, p.db, account); err != nil {
		return "", p.fail("create_account", err)
	}

	query := url.Values{}
	query.Set("organization", orgID)
	query.Set("user", userID)
	return p.link("connect", "onboarding", account.ID) + "?" + query.Encode(), nil
}

// CompleteOnboarding finishes the hosted onboarding flow opened by CreateAccount.
func (p *Provider) CompleteOnboarding(ctx context.Context) error {
	account, err := p.repo.FindAccount(ctx, p.db)
	if err != nil {
		return p.fail("complete_onboarding", err)
	}
	if account == nil {
		return domain.ErrAccountNotConnected
	}
	account.Status = string(domain.AccountStatusOK)
	account.ChargesEnabled = true
	account.PayoutsEnabled = true
	account.Requirements = datatypes.JSON("[]")
	account.DisabledReason = nil
	account.UpdatedAt = p.clock.Now()
	return p.fail("complete_onboarding", p.repo.SaveAccount(ctx, p.db, account))
}

func (p *Provider) GetAccountStatus(ctx context.Context) (*domain.AccountStatus, error) {
	account, err := p.repo.FindAccount(ctx, p.db)
	if err != nil {
		return nil, p.fail("get_account_status", err)
	}
	if account == nil {
		return &domain.AccountStatus{AccountType: accountType, Status: domain.AccountStatusNotConnected}, nil
	}

	var requirements []domain.Requirement
	if len(account.Requirements) > 0 {
		if err := json.Unmarshal(account.Requirements, &requirements); err != nil {
			return nil, p.fail("get_account_status", err)
		}
	}
	for i := range requirements {
		requirements[i].Status = domain.ParseRequirementStatus(string(requirements[i].Status))
	}

	charges := account.ChargesEnabled
	payouts := account.PayoutsEnabled
	livemode := account.Livemode
	return &domain.AccountStatus{
		AccountType:    accountType,
		AccountID:      account.ID,
		OrganizationID: account.OrganizationID,
		Status:         domain.ParseAccountStatus(account.Status),
		ChargesEnabled: &charges,
		PayoutsEnabled: &payouts,
		Livemode:       &livemode,
		Requirements:   requirements,
		DisabledReason: account.DisabledReason,
	}, nil
}

func (p *Provider) GetAccountDashboardLoginLink(ctx context.Context) (string, error) {
	account, err := p.repo.FindAccount(ctx, p.db)
	if err != nil {
		return "", p.fail("get_dashboard_link", err)
	}
	if account == nil {
		return "", domain.ErrAccountNotConnected
	}
	return p.link("dashboard", account.ID), nil
}

func (p *Provider) UnlinkAccount(ctx context.Context) error {
	return p.fail("unlink_account", p.repo.DeleteAccounts(ctx, p.db))
}

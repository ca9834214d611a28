package service

import (
	"context"
	"strings"

	accountdomain "github.com/smallbiznis/monetization/internal/account/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Accounts provider.AccountGateway
}

type Service struct {
	log      *zap.Logger
	accounts provider.AccountGateway
}

func New(p Params) accountdomain.Service {
	return &Service{
		log:      p.Log.Named("account.service"),
		accounts: p.Accounts,
	}
}

// CreateAccount starts onboarding and returns the URL the user finishes it at.
func (s *Service) CreateAccount(ctx context.Context, link domain.AccountLinkData) (string, error) {
	link.UserObjectID = strings.TrimSpace(link.UserObjectID)
	link.OrganisationObjectID = strings.TrimSpace(link.OrganisationObjectID)
	if link.UserObjectID == "" || link.OrganisationObjectID == "" {
		return "", domain.ErrInvalidID
	}

	onboardingURL, err := s.accounts.CreateAccount(ctx, link)
	if err != nil {
		return "", err
	}
	s.log.Info("account onboarding started", zap.String("organization_id", link.OrganisationObjectID))
	return onboardingURL, nil
}

// GetAccountStatus always asks the provider; the status is never cached.
func (s *Service) GetAccountStatus(ctx context.Context) (*domain.AccountStatus, error) {
	return s.accounts.GetAccountStatus(ctx)
}

func (s *Service) GetAccountDashboardLoginLink(ctx context.Context) (string, error) {
	return s.accounts.GetAccountDashboardLoginLink(ctx)
}

func (s *Service) UnlinkAccount(ctx context.Context) error {
	if err := s.accounts.UnlinkAccount(ctx); err != nil {
		return err
	}
	s.log.Info("account unlinked")
	return nil
}

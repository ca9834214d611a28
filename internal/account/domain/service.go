package domain

import (
	"context"

	"github.com/smallbiznis/monetization/pkg/monetization/domain"
)

// Service manages the platform's connected provider account.
type Service interface {
	CreateAccount(ctx context.Context, link domain.AccountLinkData) (string, error)
	GetAccountStatus(ctx context.Context) (*domain.AccountStatus, error)
	GetAccountDashboardLoginLink(ctx context.Context) (string, error)
	UnlinkAccount(ctx context.Context) error
}

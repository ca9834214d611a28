package service

import (
	"context"
	"testing"

	"github.com/smallbiznis/monetization/internal/providers/providertest"
	"github.com/smallbiznis/monetization/pkg/monetization/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAccountLifecycle(t *testing.T) {
	env := providertest.NewLocal(t)
	svc := New(Params{Log: zap.NewNop(), Accounts: env.Local})
	ctx := context.Background()

	status, err := svc.GetAccountStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusNotConnected, status.Status)

	_, err = svc.GetAccountDashboardLoginLink(ctx)
	assert.ErrorIs(t, err, domain.ErrAccountNotConnected)

	_, err = svc.CreateAccount(ctx, domain.AccountLinkData{UserObjectID: "user_1"})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	onboarding, err := svc.CreateAccount(ctx, domain.AccountLinkData{UserObjectID: " user_1 ", OrganisationObjectID: "org_1"})
	require.NoError(t, err)
	assert.Contains(t, onboarding, "https://billing.example.test/connect/onboarding/")
	assert.Contains(t, onboarding, "organization=org_1")

	status, err = svc.GetAccountStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusPendingAction, status.Status)
	assert.NotEmpty(t, status.Requirements)

	require.NoError(t, env.Local.CompleteOnboarding(ctx))
	status, err = svc.GetAccountStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusOK, status.Status)

	dashboard, err := svc.GetAccountDashboardLoginLink(ctx)
	require.NoError(t, err)
	assert.Contains(t, dashboard, "/dashboard/")

	require.NoError(t, svc.UnlinkAccount(ctx))
	status, err = svc.GetAccountStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusNotConnected, status.Status)
}

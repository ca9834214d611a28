// Package providers selects the billing provider the engines run against.
package providers

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/monetization/internal/clock"
	"github.com/smallbiznis/monetization/internal/config"
	"github.com/smallbiznis/monetization/internal/providers/local"
	"github.com/smallbiznis/monetization/internal/providers/local/repository"
	"github.com/smallbiznis/monetization/pkg/monetization/provider"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("providers",
	fx.Provide(
		NewSnowflake,
		NewRegistry,
		NewProvider,
		Gateways,
	),
)

func NewSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}

type RegistryParams struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
}

// NewRegistry registers every provider this build ships with.
func NewRegistry(p RegistryParams) *provider.Registry {
	return provider.NewRegistry(
		local.NewFactory(p.DB, repository.Provide(), p.Clock, p.GenID, p.Log),
	)
}

// NewProvider builds the provider named by MONETIZATION_PROVIDER.
func NewProvider(cfg config.Config, registry *provider.Registry, log *zap.Logger) (provider.Provider, error) {
	if !registry.ProviderExists(cfg.Provider) {
		return nil, fmt.Errorf("%w: %q (available: %v)", provider.ErrProviderNotFound, cfg.Provider, registry.Names())
	}
	selected, err := registry.NewProvider(provider.Config{Name: cfg.Provider, Options: cfg.ProviderOptions})
	if err != nil {
		return nil, err
	}
	log.Named("providers").Info("billing provider selected", zap.String("provider", selected.Name()))
	return selected, nil
}

// Gateways exposes the selected provider through the narrow ports each
// engine depends on.
func Gateways(p provider.Provider) (
	provider.AccountGateway,
	provider.CustomerGateway,
	provider.ProductGateway,
	provider.PriceGateway,
	provider.CheckoutGateway,
	provider.SubscriptionGateway,
	provider.UsageGateway,
	provider.CreditGateway,
	provider.InvoiceGateway,
) {
	return p, p, p, p, p, p, p, p, p
}

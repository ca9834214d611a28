package monetization

import (
	"github.com/smallbiznis/monetization/internal/account"
	"github.com/smallbiznis/monetization/internal/credit"
	"github.com/smallbiznis/monetization/internal/customer"
	"github.com/smallbiznis/monetization/internal/idempotency"
	"github.com/smallbiznis/monetization/internal/price"
	"github.com/smallbiznis/monetization/internal/product"
	"github.com/smallbiznis/monetization/internal/providers"
	"github.com/smallbiznis/monetization/internal/subscription"
	"github.com/smallbiznis/monetization/internal/usage"
	"go.uber.org/fx"
)

// Module provides Monetization. The host supplies config, clock, database
// and observability.
var Module = fx.Module("monetization",
	providers.Module,
	idempotency.Module,
	account.Module,
	customer.Module,
	product.Module,
	price.Module,
	subscription.Module,
	usage.Module,
	credit.Module,
	fx.Provide(New),
)

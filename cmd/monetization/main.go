package main

import (
	"github.com/smallbiznis/monetization/internal/clock"
	"github.com/smallbiznis/monetization/internal/config"
	"github.com/smallbiznis/monetization/internal/migration"
	"github.com/smallbiznis/monetization/internal/observability"
	"github.com/smallbiznis/monetization/internal/scheduler"
	"github.com/smallbiznis/monetization/pkg/db"
	"github.com/smallbiznis/monetization/pkg/monetization"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		migration.Module,

		monetization.Module,
		scheduler.Module,

		fx.Invoke(func(_ monetization.Monetization, cfg config.Config, log *zap.Logger) {
			log.Info("monetization worker ready",
				zap.String("provider", cfg.Provider),
				zap.Bool("scheduler_enabled", cfg.SchedulerEnabled),
			)
		}),
	)
	app.Run()
}

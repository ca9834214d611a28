package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/smallbiznis/monetization/internal/config"
	"github.com/smallbiznis/monetization/internal/migration"
	"github.com/smallbiznis/monetization/internal/observability"
	"github.com/smallbiznis/monetization/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		db.Module,
		migration.Module,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	if err := app.Stop(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

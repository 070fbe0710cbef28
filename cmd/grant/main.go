package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/extraitexto-backend/internal/entitlements"
	"github.com/angelmondragon/extraitexto-backend/pkg/config"
	"github.com/angelmondragon/extraitexto-backend/pkg/db"
	"github.com/angelmondragon/extraitexto-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "grant"})
	_ = godotenv.Load()

	userID := flag.String("user", "", "user id (uuid) to upgrade")
	planName := flag.String("plan", "Premium", "name of the paid plan to grant")
	days := flag.Int("days", 30, "length of the subscription period in days")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "missing -user")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "grant",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "plan": *planName})
	ctx = logg.WithUserID(ctx, *userID)

	if !cfg.DB.Configured() {
		fmt.Fprintf(os.Stderr, "%s is required\n", config.EnvDBDSN)
		os.Exit(1)
	}
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	granter, err := entitlements.NewGranter(entitlements.NewRepository(dbClient))
	if err != nil {
		logg.Error(ctx, "failed to build granter", err)
		os.Exit(1)
	}

	sub, err := granter.Grant(ctx, entitlements.GrantRequest{
		UserID:   *userID,
		PlanName: *planName,
		Period:   time.Duration(*days) * 24 * time.Hour,
		Start:    time.Now(),
	})
	if err != nil {
		logg.Error(ctx, "grant failed", err)
		os.Exit(1)
	}
	logg.Info(logg.WithField(ctx, "subscription_id", sub.Subscription.ID.String()), "subscription granted")
	fmt.Printf("granted %s to %s until %s\n", sub.Plan.Name, *userID, sub.Subscription.CurrentPeriodEnd.Format(time.RFC3339))
}

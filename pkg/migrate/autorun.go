package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/extraitexto-backend/pkg/config"
	"github.com/angelmondragon/extraitexto-backend/pkg/db"
	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
	"github.com/angelmondragon/extraitexto-backend/pkg/logger"
)

// MaybeRunDev migrates the schema automatically when the app runs in dev mode
// with the auto-migrate flag set. Postgres runs the goose files; SQLite, used
// for local runs, gets a gorm AutoMigrate plus the default catalog.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}
	if !client.Configured() {
		logg.Warn(ctx, "skipping auto-migrate: data store not configured")
		return nil
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "driver": cfg.DB.Driver, "dir": DefaultDir})

	if cfg.DB.Driver == db.DriverSQLite {
		logg.Info(ctx, "running gorm auto-migrate (dev sqlite)")
		conn := client.DB().WithContext(ctx)
		if err := conn.AutoMigrate(&models.Plan{}, &models.Language{}, &models.Subscription{}, &models.UsageLog{}); err != nil {
			return fmt.Errorf("auto-migrating sqlite schema: %w", err)
		}
		if err := Seed(ctx, conn); err != nil {
			return err
		}
		logg.Info(ctx, "sqlite schema ready")
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	logg.Info(ctx, "running Goose migrations (dev auto-run)")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	logg.Info(ctx, "Goose migrations completed")
	return nil
}

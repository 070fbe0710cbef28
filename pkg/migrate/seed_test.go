package migrate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
)

func TestSeedIsIdempotent(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(&models.Plan{}, &models.Language{}))

	ctx := context.Background()
	require.NoError(t, Seed(ctx, conn))
	require.NoError(t, Seed(ctx, conn))

	var plans []models.Plan
	require.NoError(t, conn.Order("price asc").Find(&plans).Error)
	require.Len(t, plans, 2)
	require.True(t, plans[0].IsFree())
	require.Equal(t, 3, plans[0].DailyLimit)
	require.Equal(t, []string{"OCR básico", "Suporte a JPG e PNG", "3 extrações por dia"}, plans[0].Features)
	require.True(t, plans[1].Unlimited())

	var premiumLanguages int64
	require.NoError(t, conn.Model(&models.Language{}).Where("is_premium = ?", true).Count(&premiumLanguages).Error)
	require.EqualValues(t, 3, premiumLanguages)
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, " Add Plan Currency! ", mustTime(t))
	require.NoError(t, err)
	require.Contains(t, path, "20260301093000_add_plan_currency.sql")

	count, err := ValidateDir(dir)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	_, err = CreateSQLMigration(dir, " Add Plan Currency! ", mustTime(t))
	require.Error(t, err)

	_, err = CreateSQLMigration(dir, "!!!", mustTime(t))
	require.Error(t, err)
}

func mustTime(t *testing.T) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, "2026-03-01T09:30:00Z")
	require.NoError(t, err)
	return ts
}

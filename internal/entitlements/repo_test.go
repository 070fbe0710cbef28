package entitlements

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/extraitexto-backend/pkg/db"
	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
	"github.com/angelmondragon/extraitexto-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/extraitexto-backend/pkg/errors"
	"github.com/angelmondragon/extraitexto-backend/pkg/logger"
)

func openSQLite(t *testing.T, dsn string, maxOpen int) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(maxOpen)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, conn.AutoMigrate(&models.Plan{}, &models.Language{}, &models.Subscription{}, &models.UsageLog{}))
	require.NoError(t, conn.Exec(
		"CREATE UNIQUE INDEX user_subscriptions_one_active_per_user ON user_subscriptions (user_id) WHERE status = 'active'",
	).Error)
	return conn
}

func setupRepo(t *testing.T) (Repository, *gorm.DB) {
	t.Helper()
	conn := openSQLite(t, "file::memory:", 1)
	return NewRepository(db.FromConn(conn, 5*time.Second)), conn
}

type seeded struct {
	free, premium, retired models.Plan
	pt, en, es             models.Language
}

func seedCatalog(t *testing.T, conn *gorm.DB) seeded {
	t.Helper()
	s := seeded{
		free:    models.Plan{Name: "Free", Price: decimal.Zero, DailyLimit: 3, IsActive: true, Features: []string{"OCR básico"}},
		premium: models.Plan{Name: "Premium", Price: decimal.RequireFromString("29.90"), DailyLimit: 999999, IsActive: true},
		retired: models.Plan{Name: "Legacy", Price: decimal.RequireFromString("9.90"), DailyLimit: 50, IsActive: true},
		pt:      models.Language{Code: "pt", Name: "Português"},
		en:      models.Language{Code: "en", Name: "English"},
		es:      models.Language{Code: "es", Name: "Español", IsPremium: true},
	}
	for _, plan := range []*models.Plan{&s.free, &s.premium, &s.retired} {
		require.NoError(t, conn.Create(plan).Error)
	}
	require.NoError(t, conn.Model(&models.Plan{}).Where("id = ?", s.retired.ID).Update("is_active", false).Error)
	for _, lang := range []*models.Language{&s.pt, &s.en, &s.es} {
		require.NoError(t, conn.Create(lang).Error)
	}
	return s
}

func subscription(userID string, plan models.Plan, status enums.SubscriptionStatus, end time.Time) *models.Subscription {
	return &models.Subscription{
		UserID:             userID,
		PlanID:             plan.ID,
		Status:             status,
		CurrentPeriodStart: end.Add(-30 * 24 * time.Hour),
		CurrentPeriodEnd:   end,
	}
}

func TestRepositoryListActivePlansOrdersByPrice(t *testing.T) {
	repo, conn := setupRepo(t)
	s := seedCatalog(t, conn)

	plans, err := repo.ListActivePlans(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, s.free.ID, plans[0].ID)
	assert.Equal(t, s.premium.ID, plans[1].ID)
	assert.Equal(t, []string{"OCR básico"}, plans[0].Features)
	assert.True(t, plans[1].Price.Equal(decimal.RequireFromString("29.90")))
}

func TestRepositoryGetPlan(t *testing.T) {
	repo, conn := setupRepo(t)
	s := seedCatalog(t, conn)

	plan, err := repo.GetPlan(context.Background(), s.premium.ID)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "Premium", plan.Name)

	missing, err := repo.GetPlan(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryListLanguagesFilters(t *testing.T) {
	repo, conn := setupRepo(t)
	seedCatalog(t, conn)
	ctx := context.Background()

	all, err := repo.ListLanguages(ctx, enums.LanguageFilterAll)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "English", all[0].Name)

	premium, err := repo.ListLanguages(ctx, enums.LanguageFilterPremium)
	require.NoError(t, err)
	require.Len(t, premium, 1)
	assert.Equal(t, "es", premium[0].Code)

	free, err := repo.ListLanguages(ctx, enums.LanguageFilterFree)
	require.NoError(t, err)
	assert.Len(t, free, 2)

	defaulted, err := repo.ListLanguages(ctx, "")
	require.NoError(t, err)
	assert.Len(t, defaulted, 3)

	_, err = repo.ListLanguages(ctx, enums.LanguageFilter("paid"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRepositoryGetLanguageByCode(t *testing.T) {
	repo, conn := setupRepo(t)
	s := seedCatalog(t, conn)

	lang, err := repo.GetLanguageByCode(context.Background(), " PT ")
	require.NoError(t, err)
	require.NotNil(t, lang)
	assert.Equal(t, s.pt.ID, lang.ID)

	missing, err := repo.GetLanguageByCode(context.Background(), "jp")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryGetActiveSubscription(t *testing.T) {
	repo, conn := setupRepo(t)
	s := seedCatalog(t, conn)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	none := uuid.NewString()
	sub, err := repo.GetActiveSubscription(ctx, none, now)
	require.NoError(t, err)
	assert.Nil(t, sub)

	expired := uuid.NewString()
	require.NoError(t, repo.CreateSubscription(ctx, subscription(expired, s.premium, enums.SubscriptionStatusActive, now.Add(-time.Hour))))
	sub, err = repo.GetActiveSubscription(ctx, expired, now)
	require.NoError(t, err)
	assert.Nil(t, sub, "expired period must not count")

	canceled := uuid.NewString()
	require.NoError(t, repo.CreateSubscription(ctx, subscription(canceled, s.premium, enums.SubscriptionStatusCanceled, now.Add(time.Hour))))
	sub, err = repo.GetActiveSubscription(ctx, canceled, now)
	require.NoError(t, err)
	assert.Nil(t, sub, "canceled status must not count")

	active := uuid.NewString()
	require.NoError(t, repo.CreateSubscription(ctx, subscription(active, s.premium, enums.SubscriptionStatusPending, now.Add(time.Hour))))
	require.NoError(t, repo.CreateSubscription(ctx, subscription(active, s.premium, enums.SubscriptionStatusActive, now.Add(48*time.Hour))))
	sub, err = repo.GetActiveSubscription(ctx, active, now)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, enums.SubscriptionStatusActive, sub.Subscription.Status)
	assert.Equal(t, "Premium", sub.Plan.Name)
	assert.Equal(t, 999999, sub.Plan.DailyLimit)
}

func TestRepositoryCreateSubscriptionRejectsSecondActive(t *testing.T) {
	repo, conn := setupRepo(t)
	s := seedCatalog(t, conn)
	ctx := context.Background()
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	user := uuid.NewString()

	require.NoError(t, repo.CreateSubscription(ctx, subscription(user, s.premium, enums.SubscriptionStatusActive, end)))
	err := repo.CreateSubscription(ctx, subscription(user, s.premium, enums.SubscriptionStatusActive, end))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	assert.True(t, pkgerrors.IsCode(repo.CreateSubscription(ctx, nil), pkgerrors.CodeValidation))
}

func TestRepositoryCreateSubscriptionExpiresLapsedActive(t *testing.T) {
	repo, conn := setupRepo(t)
	s := seedCatalog(t, conn)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	user := uuid.NewString()

	lapsed := subscription(user, s.premium, enums.SubscriptionStatusActive, now.Add(-30*24*time.Hour))
	require.NoError(t, repo.CreateSubscription(ctx, lapsed))

	renewed := &models.Subscription{
		UserID:             user,
		PlanID:             s.premium.ID,
		Status:             enums.SubscriptionStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(30 * 24 * time.Hour),
	}
	require.NoError(t, repo.CreateSubscription(ctx, renewed))

	var old models.Subscription
	require.NoError(t, conn.Where("id = ?", lapsed.ID).First(&old).Error)
	assert.Equal(t, enums.SubscriptionStatusExpired, old.Status)

	sub, err := repo.GetActiveSubscription(ctx, user, now)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, renewed.ID, sub.Subscription.ID)
}

func TestRepositoryActiveSubscriptionWithMissingPlan(t *testing.T) {
	repo, conn := setupRepo(t)
	seedCatalog(t, conn)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	user := uuid.NewString()

	orphan := subscription(user, models.Plan{ID: uuid.New()}, enums.SubscriptionStatusActive, now.Add(time.Hour))
	require.NoError(t, repo.CreateSubscription(ctx, orphan))

	_, err := repo.GetActiveSubscription(ctx, user, now)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency), "got %v", err)
}

func TestRepositoryUsageCounters(t *testing.T) {
	repo, conn := setupRepo(t)
	s := seedCatalog(t, conn)
	ctx := context.Background()
	user := uuid.NewString()
	other := uuid.NewString()
	today := time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)
	yesterday := today.Add(-24 * time.Hour)

	total, err := repo.SumDailyUsage(ctx, user, today)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, repo.UpsertUsageIncrement(ctx, user, s.pt.ID, today))
	require.NoError(t, repo.UpsertUsageIncrement(ctx, user, s.pt.ID, today.Add(time.Hour)))
	require.NoError(t, repo.UpsertUsageIncrement(ctx, user, s.en.ID, today))
	require.NoError(t, repo.UpsertUsageIncrement(ctx, user, s.pt.ID, yesterday))
	require.NoError(t, repo.UpsertUsageIncrement(ctx, other, s.pt.ID, today))

	total, err = repo.SumDailyUsage(ctx, user, today)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	total, err = repo.SumDailyUsage(ctx, user, yesterday)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	var rows int64
	require.NoError(t, conn.Model(&models.UsageLog{}).Where("user_id = ?", user).Count(&rows).Error)
	assert.EqualValues(t, 3, rows, "one row per user, language and day")
}

func TestRepositoryListUsageLogsNewestFirst(t *testing.T) {
	repo, conn := setupRepo(t)
	s := seedCatalog(t, conn)
	ctx := context.Background()
	user := uuid.NewString()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		require.NoError(t, repo.UpsertUsageIncrement(ctx, user, s.es.ID, base.Add(time.Duration(-i)*24*time.Hour)))
	}
	require.NoError(t, repo.UpsertUsageIncrement(ctx, user, s.es.ID, base))

	logs, err := repo.ListUsageLogs(ctx, user, 3)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.True(t, logs[0].Log.Date.Equal(models.UsageDay(base)))
	assert.Equal(t, 2, logs[0].Log.RequestCount)
	assert.Equal(t, "Español", logs[0].Language.Name)
	assert.True(t, logs[1].Log.Date.Before(logs[0].Log.Date))

	empty, err := repo.ListUsageLogs(ctx, uuid.NewString(), 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRepositoryConcurrentIncrementsAreNotLost(t *testing.T) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=10000", filepath.Join(t.TempDir(), "usage.db"))
	conn := openSQLite(t, dsn, 8)
	repo := NewRepository(db.FromConn(conn, 30*time.Second))
	s := seedCatalog(t, conn)

	agg, err := NewAggregator(repo, func() time.Time { return fixedNow })
	require.NoError(t, err)
	recorder, err := NewRecorder(RecorderParams{Repo: repo, Aggregator: agg, Logger: logger.Nop()})
	require.NoError(t, err)

	const workers = 25
	user := uuid.NewString()
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- recorder.RecordOperation(context.Background(), user, s.pt.Code)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	total, err := agg.Today(context.Background(), user)
	require.NoError(t, err)
	assert.EqualValues(t, workers, total)
}

func TestRepositoryUnconfiguredStoreFails(t *testing.T) {
	repo := NewRepository(db.Unconfigured("EXTRAITEXTO_DB_DSN not set"))
	ctx := context.Background()
	user := uuid.NewString()

	_, err := repo.ListActivePlans(ctx)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, err = repo.GetLanguageByCode(ctx, "pt")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, err = repo.GetActiveSubscription(ctx, user, fixedNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, err = repo.SumDailyUsage(ctx, user, fixedNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	err = repo.UpsertUsageIncrement(ctx, user, uuid.New(), fixedNow)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	_, err = repo.ListUsageLogs(ctx, user, 5)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

package entitlements

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/extraitexto-backend/pkg/db"
	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
	"github.com/angelmondragon/extraitexto-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/extraitexto-backend/pkg/errors"
)

// Repository reads and writes plans, languages, subscriptions and usage rows.
// Single-row lookups return (nil, nil) when nothing matches; every store
// failure is a dependency error.
type Repository interface {
	ListActivePlans(ctx context.Context) ([]models.Plan, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	ListLanguages(ctx context.Context, filter enums.LanguageFilter) ([]models.Language, error)
	GetLanguageByCode(ctx context.Context, code string) (*models.Language, error)
	GetActiveSubscription(ctx context.Context, userID string, now time.Time) (*SubscriptionWithPlan, error)
	CreateSubscription(ctx context.Context, subscription *models.Subscription) error
	SumDailyUsage(ctx context.Context, userID string, day time.Time) (int64, error)
	UpsertUsageIncrement(ctx context.Context, userID string, languageID uuid.UUID, day time.Time) error
	ListUsageLogs(ctx context.Context, userID string, limit int) ([]UsageLogWithLanguage, error)
}

type repository struct {
	db *db.Client
}

// NewRepository returns a repository bound to the provided store client.
func NewRepository(client *db.Client) Repository {
	return &repository{db: client}
}

func dataAccess(err error, msg string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func (r *repository) ListActivePlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	err := r.db.Run(ctx, func(tx *gorm.DB) error {
		return tx.Where("is_active = ?", true).
			Order("price ASC").
			Order("name ASC").
			Find(&plans).Error
	})
	if err != nil {
		return nil, dataAccess(err, "list active plans")
	}
	return plans, nil
}

func (r *repository) GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	err := r.db.Run(ctx, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).First(&plan).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, dataAccess(err, "get plan")
	}
	return &plan, nil
}

func (r *repository) ListLanguages(ctx context.Context, filter enums.LanguageFilter) ([]models.Language, error) {
	if filter == "" {
		filter = enums.LanguageFilterAll
	}
	if !filter.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid language filter")
	}

	var languages []models.Language
	err := r.db.Run(ctx, func(tx *gorm.DB) error {
		query := tx.Model(&models.Language{})
		switch filter {
		case enums.LanguageFilterPremium:
			query = query.Where("is_premium = ?", true)
		case enums.LanguageFilterFree:
			query = query.Where("is_premium = ?", false)
		}
		return query.Order("name ASC").Find(&languages).Error
	})
	if err != nil {
		return nil, dataAccess(err, "list languages")
	}
	return languages, nil
}

func (r *repository) GetLanguageByCode(ctx context.Context, code string) (*models.Language, error) {
	var language models.Language
	err := r.db.Run(ctx, func(tx *gorm.DB) error {
		return tx.Where("code = ?", strings.ToLower(strings.TrimSpace(code))).First(&language).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, dataAccess(err, "get language")
	}
	return &language, nil
}

// GetActiveSubscription returns the newest active subscription whose period
// has not ended at now, joined with its plan.
func (r *repository) GetActiveSubscription(ctx context.Context, userID string, now time.Time) (*SubscriptionWithPlan, error) {
	var (
		result SubscriptionWithPlan
		found  bool
	)
	err := r.db.Run(ctx, func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).
			Where("status = ?", enums.SubscriptionStatusActive).
			Where("current_period_end >= ?", now.UTC()).
			Order("created_at DESC").
			First(&result.Subscription).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		if err := tx.Where("id = ?", result.Subscription.PlanID).First(&result.Plan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeDependency, "active subscription references a missing plan").
					WithDetails(map[string]any{"subscription_id": result.Subscription.ID.String()})
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, dataAccess(err, "get active subscription")
	}
	if !found {
		return nil, nil
	}
	return &result, nil
}

// CreateSubscription inserts the row. When it is active, rows of the same user
// still marked active but whose period ended before the new start are expired
// first in the same transaction, so a lapsed plan never blocks a new one.
func (r *repository) CreateSubscription(ctx context.Context, subscription *models.Subscription) error {
	if subscription == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "subscription is required")
	}
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		if subscription.Status == enums.SubscriptionStatusActive {
			if err := tx.Model(&models.Subscription{}).
				Where("user_id = ?", subscription.UserID).
				Where("status = ?", enums.SubscriptionStatusActive).
				Where("current_period_end < ?", subscription.CurrentPeriodStart.UTC()).
				Updates(map[string]any{
					"status":     enums.SubscriptionStatusExpired,
					"updated_at": time.Now().UTC(),
				}).Error; err != nil {
				return err
			}
		}
		return tx.Create(subscription).Error
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "user already has an active subscription")
		}
		return dataAccess(err, "create subscription")
	}
	return nil
}

func (r *repository) SumDailyUsage(ctx context.Context, userID string, day time.Time) (int64, error) {
	var total int64
	err := r.db.Run(ctx, func(tx *gorm.DB) error {
		return tx.Model(&models.UsageLog{}).
			Select("COALESCE(SUM(request_count), 0)").
			Where("user_id = ? AND date = ?", userID, models.UsageDay(day)).
			Scan(&total).Error
	})
	if err != nil {
		return 0, dataAccess(err, "sum daily usage")
	}
	return total, nil
}

// UpsertUsageIncrement adds one to the (user, language, day) counter in a
// single INSERT ... ON CONFLICT statement so concurrent increments never
// overwrite each other.
func (r *repository) UpsertUsageIncrement(ctx context.Context, userID string, languageID uuid.UUID, day time.Time) error {
	row := models.UsageLog{
		UserID:       userID,
		LanguageID:   languageID,
		Date:         models.UsageDay(day),
		RequestCount: 1,
	}
	err := r.db.Run(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "language_id"}, {Name: "date"}},
			DoUpdates: clause.Assignments(map[string]any{
				"request_count": gorm.Expr("usage_logs.request_count + 1"),
				"updated_at":    time.Now().UTC(),
			}),
		}).Create(&row).Error
	})
	return dataAccess(err, "record usage increment")
}

func (r *repository) ListUsageLogs(ctx context.Context, userID string, limit int) ([]UsageLogWithLanguage, error) {
	if limit <= 0 {
		limit = 30
	}
	var (
		logs      []models.UsageLog
		languages []models.Language
	)
	err := r.db.Run(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).
			Order("date DESC").
			Order("updated_at DESC").
			Limit(limit).
			Find(&logs).Error; err != nil {
			return err
		}
		if len(logs) == 0 {
			return nil
		}
		ids := make([]uuid.UUID, 0, len(logs))
		for _, log := range logs {
			ids = append(ids, log.LanguageID)
		}
		return tx.Where("id IN ?", ids).Find(&languages).Error
	})
	if err != nil {
		return nil, dataAccess(err, "list usage logs")
	}

	byID := make(map[uuid.UUID]models.Language, len(languages))
	for _, lang := range languages {
		byID[lang.ID] = lang
	}
	out := make([]UsageLogWithLanguage, 0, len(logs))
	for _, log := range logs {
		out = append(out, UsageLogWithLanguage{Log: log, Language: byID[log.LanguageID]})
	}
	return out, nil
}

package entitlements

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/extraitexto-backend/pkg/errors"
	"github.com/angelmondragon/extraitexto-backend/pkg/pagination"
)

// Aggregator totals a user's operations per UTC day across all languages.
// Every call reads the store; nothing is cached.
type Aggregator struct {
	repo Repository
	now  func() time.Time
}

// NewAggregator builds an aggregator. A nil clock falls back to time.Now.
func NewAggregator(repo Repository, now func() time.Time) (*Aggregator, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Aggregator{repo: repo, now: now}, nil
}

// Day returns the current UTC usage day.
func (a *Aggregator) Day() time.Time {
	return models.UsageDay(a.now())
}

// DailyTotal returns the operations the user performed on day.
func (a *Aggregator) DailyTotal(ctx context.Context, userID string, day time.Time) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}
	return a.repo.SumDailyUsage(ctx, userID, models.UsageDay(day))
}

// Today returns the operations the user performed on the current UTC day.
func (a *Aggregator) Today(ctx context.Context, userID string) (int64, error) {
	return a.DailyTotal(ctx, userID, a.Day())
}

// History returns the newest usage rows for the user, bounded by limit.
func (a *Aggregator) History(ctx context.Context, userID string, limit int) ([]UsageLogWithLanguage, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return a.repo.ListUsageLogs(ctx, userID, pagination.NormalizeLimit(limit))
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return nil
}

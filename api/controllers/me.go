package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/extraitexto-backend/api/middleware"
	"github.com/angelmondragon/extraitexto-backend/api/responses"
	"github.com/angelmondragon/extraitexto-backend/api/validators"
	"github.com/angelmondragon/extraitexto-backend/internal/entitlements"
	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/extraitexto-backend/pkg/errors"
	"github.com/angelmondragon/extraitexto-backend/pkg/logger"
	"github.com/angelmondragon/extraitexto-backend/pkg/pagination"
	"github.com/angelmondragon/extraitexto-backend/pkg/types"
)

// EntitlementService answers plan and quota questions for the caller.
type EntitlementService interface {
	ResolvePlan(ctx context.Context, userID string) (entitlements.Entitlement, error)
	Summary(ctx context.Context, userID string) (entitlements.UsageSummary, error)
	CanPerformOperation(ctx context.Context, userID, languageCode string) (entitlements.Decision, error)
	AvailableLanguages(ctx context.Context, userID string) ([]models.Language, error)
}

// UsageService reads the caller's usage counters.
type UsageService interface {
	Day() time.Time
	DailyTotal(ctx context.Context, userID string, day time.Time) (int64, error)
	History(ctx context.Context, userID string, limit int) ([]entitlements.UsageLogWithLanguage, error)
}

type entitlementCheckRequest struct {
	Language string `json:"language" validate:"required,min=2,max=8"`
}

func callerID(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return "", false
	}
	return userID, true
}

// MeEntitlement returns the plan and today's counters.
func MeEntitlement(svc EntitlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		summary, err := svc.Summary(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toUsageSummaryResponse(summary))
	}
}

// MeSubscription returns the active subscription, or null for free users.
func MeSubscription(svc EntitlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		ent, err := svc.ResolvePlan(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSubscriptionResponse(ent.Subscription))
	}
}

// MeCheckEntitlement answers whether one more operation in the language is
// allowed. Denials are reported with 200 and allowed=false.
func MeCheckEntitlement(svc EntitlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		var body entitlementCheckRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		decision, err := svc.CanPerformOperation(r.Context(), userID, validators.NormalizeCode(body.Language))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toDecisionResponse(decision))
	}
}

// MeLanguages lists the languages the caller's plan covers.
func MeLanguages(svc EntitlementService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		langs, err := svc.AvailableLanguages(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toLanguageResponses(langs))
	}
}

// MeDailyUsage returns the total for ?date=YYYY-MM-DD, today by default.
func MeDailyUsage(svc UsageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		day, given, err := validators.ParseQueryDate(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !given {
			day = svc.Day()
		}
		total, err := svc.DailyTotal(r.Context(), userID, day)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dailyUsageResponse{Date: formatDay(day), Total: total})
	}
}

// MeUsageLogs returns the newest usage rows, bounded by ?limit.
func MeUsageLogs(svc UsageService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := callerID(w, r, logg)
		if !ok {
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.History(r.Context(), userID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessWithMeta(w, toUsageLogResponses(rows), types.PageMeta{Limit: limit, Count: len(rows)})
	}
}

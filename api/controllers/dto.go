package controllers

import (
	"time"

	"github.com/angelmondragon/extraitexto-backend/internal/entitlements"
	"github.com/angelmondragon/extraitexto-backend/internal/extraction"
	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
)

type planResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Price       string   `json:"price"`
	DailyLimit  int      `json:"daily_limit"`
	Unlimited   bool     `json:"unlimited"`
	Features    []string `json:"features"`
}

type planCatalogResponse struct {
	Free    *planResponse  `json:"free"`
	Premium []planResponse `json:"premium"`
}

type languageResponse struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	IsPremium bool   `json:"is_premium"`
}

type entitlementResponse struct {
	PlanType   string `json:"plan_type"`
	PlanName   string `json:"plan_name"`
	DailyLimit int    `json:"daily_limit"`
	Unlimited  bool   `json:"unlimited"`
}

type usageSummaryResponse struct {
	entitlementResponse
	Date      string `json:"date"`
	Used      int64  `json:"used"`
	Remaining *int64 `json:"remaining"`
}

type subscriptionResponse struct {
	ID                 string       `json:"id"`
	Status             string       `json:"status"`
	CurrentPeriodStart time.Time    `json:"current_period_start"`
	CurrentPeriodEnd   time.Time    `json:"current_period_end"`
	CancelAtPeriodEnd  bool         `json:"cancel_at_period_end"`
	Plan               planResponse `json:"plan"`
}

type decisionResponse struct {
	Allowed  bool                `json:"allowed"`
	Reason   string              `json:"reason,omitempty"`
	Message  string              `json:"message,omitempty"`
	Language string              `json:"language"`
	Used     int64               `json:"used"`
	Date     string              `json:"date"`
	Plan     entitlementResponse `json:"plan"`
}

type dailyUsageResponse struct {
	Date  string `json:"date"`
	Total int64  `json:"total"`
}

type usageLogResponse struct {
	Date         string `json:"date"`
	Language     string `json:"language"`
	LanguageName string `json:"language_name"`
	RequestCount int    `json:"request_count"`
}

type extractionResponse struct {
	Status      string                `json:"status"`
	Text        string                `json:"text"`
	ContentType string                `json:"content_type"`
	Engine      string                `json:"engine"`
	Language    string                `json:"language"`
	Usage       *usageSummaryResponse `json:"usage"`
}

func formatDay(day time.Time) string {
	return models.UsageDay(day).Format(time.DateOnly)
}

func toPlanResponse(plan models.Plan) planResponse {
	features := plan.Features
	if features == nil {
		features = []string{}
	}
	return planResponse{
		ID:          plan.ID.String(),
		Name:        plan.Name,
		Description: plan.Description,
		Price:       plan.Price.StringFixed(2),
		DailyLimit:  plan.DailyLimit,
		Unlimited:   plan.Unlimited(),
		Features:    features,
	}
}

func toPlanCatalogResponse(catalog entitlements.PlanCatalog) planCatalogResponse {
	resp := planCatalogResponse{Premium: make([]planResponse, 0, len(catalog.Premium))}
	if catalog.Free != nil {
		free := toPlanResponse(*catalog.Free)
		resp.Free = &free
	}
	for _, plan := range catalog.Premium {
		resp.Premium = append(resp.Premium, toPlanResponse(plan))
	}
	return resp
}

func toLanguageResponses(langs []models.Language) []languageResponse {
	out := make([]languageResponse, 0, len(langs))
	for _, lang := range langs {
		out = append(out, languageResponse{Code: lang.Code, Name: lang.Name, IsPremium: lang.IsPremium})
	}
	return out
}

func toEntitlementResponse(ent entitlements.Entitlement) entitlementResponse {
	return entitlementResponse{
		PlanType:   ent.PlanType.String(),
		PlanName:   ent.PlanName,
		DailyLimit: ent.DailyLimit,
		Unlimited:  ent.Unlimited,
	}
}

func toUsageSummaryResponse(summary entitlements.UsageSummary) usageSummaryResponse {
	return usageSummaryResponse{
		entitlementResponse: toEntitlementResponse(summary.Entitlement),
		Date:                formatDay(summary.Day),
		Used:                summary.Used,
		Remaining:           summary.Remaining,
	}
}

func toSubscriptionResponse(sub *entitlements.SubscriptionWithPlan) *subscriptionResponse {
	if sub == nil {
		return nil
	}
	return &subscriptionResponse{
		ID:                 sub.Subscription.ID.String(),
		Status:             sub.Subscription.Status.String(),
		CurrentPeriodStart: sub.Subscription.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.Subscription.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.Subscription.CancelAtPeriodEnd,
		Plan:               toPlanResponse(sub.Plan),
	}
}

func toDecisionResponse(decision entitlements.Decision) decisionResponse {
	return decisionResponse{
		Allowed:  decision.Allowed,
		Reason:   decision.Reason.String(),
		Message:  decision.Reason.Message(),
		Language: decision.Language.Code,
		Used:     decision.Used,
		Date:     formatDay(decision.Day),
		Plan:     toEntitlementResponse(decision.Entitlement),
	}
}

func toUsageLogResponses(rows []entitlements.UsageLogWithLanguage) []usageLogResponse {
	out := make([]usageLogResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, usageLogResponse{
			Date:         formatDay(row.Log.Date),
			Language:     row.Language.Code,
			LanguageName: row.Language.Name,
			RequestCount: row.Log.RequestCount,
		})
	}
	return out
}

func toExtractionResponse(result *extraction.Result) extractionResponse {
	resp := extractionResponse{
		Status:      string(result.Status),
		Text:        result.Text,
		ContentType: result.ContentType,
		Engine:      result.Engine,
		Language:    result.Decision.Language.Code,
	}
	if result.Usage != nil {
		usage := toUsageSummaryResponse(*result.Usage)
		resp.Usage = &usage
	}
	return resp
}

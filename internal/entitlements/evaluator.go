package entitlements

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/extraitexto-backend/pkg/config"
	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
	"github.com/angelmondragon/extraitexto-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/extraitexto-backend/pkg/errors"
	"github.com/angelmondragon/extraitexto-backend/pkg/logger"
	"github.com/angelmondragon/extraitexto-backend/pkg/metrics"
)

const (
	// FallbackFreeDailyLimit applies when no active free plan row exists.
	FallbackFreeDailyLimit = 3
	fallbackFreePlanName   = "Free"
)

// EvaluatorParams groups dependencies for the evaluator.
type EvaluatorParams struct {
	Repo       Repository
	Aggregator *Aggregator
	Usage      config.UsageConfig
	Metrics    *metrics.EntitlementMetrics
	Logger     *logger.Logger
}

// Evaluator decides which plan a user is on and whether one more operation
// is permitted. It holds no state between calls.
type Evaluator struct {
	repo               Repository
	agg                *Aggregator
	fallbackLimit      int
	unlimitedThreshold int
	metrics            *metrics.EntitlementMetrics
	logg               *logger.Logger
}

func NewEvaluator(params EvaluatorParams) (*Evaluator, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Aggregator == nil {
		return nil, errors.New("aggregator is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	fallback := params.Usage.FreeFallbackLimit
	if fallback <= 0 {
		fallback = FallbackFreeDailyLimit
	}
	threshold := params.Usage.UnlimitedThreshold
	if threshold <= 0 {
		threshold = models.UnlimitedDailyLimit
	}
	return &Evaluator{
		repo:               params.Repo,
		agg:                params.Aggregator,
		fallbackLimit:      fallback,
		unlimitedThreshold: threshold,
		metrics:            params.Metrics,
		logg:               params.Logger,
	}, nil
}

// ResolvePlan returns premium with the subscribed plan's limit when the user
// has an active subscription. Otherwise the user is free and gets the active
// free plan's limit, or the fallback limit when that row is missing.
func (e *Evaluator) ResolvePlan(ctx context.Context, userID string) (Entitlement, error) {
	if err := requireUser(userID); err != nil {
		return Entitlement{}, err
	}

	sub, err := e.repo.GetActiveSubscription(ctx, userID, e.agg.now())
	if err != nil {
		return Entitlement{}, err
	}
	if sub != nil {
		return e.entitlement(enums.PlanTypePremium, sub.Plan.Name, sub.Plan.DailyLimit, sub), nil
	}

	plans, err := e.repo.ListActivePlans(ctx)
	if err != nil {
		return Entitlement{}, err
	}
	for _, plan := range plans {
		if plan.IsFree() {
			return e.entitlement(enums.PlanTypeFree, plan.Name, plan.DailyLimit, nil), nil
		}
	}

	e.logg.Warn(ctx, "no active free plan found, applying fallback daily limit")
	return e.entitlement(enums.PlanTypeFree, fallbackFreePlanName, e.fallbackLimit, nil), nil
}

func (e *Evaluator) entitlement(planType enums.PlanType, name string, limit int, sub *SubscriptionWithPlan) Entitlement {
	return Entitlement{
		PlanType:     planType,
		PlanName:     name,
		DailyLimit:   limit,
		Unlimited:    limit >= e.unlimitedThreshold,
		Subscription: sub,
	}
}

// CanPerformOperation checks the daily limit first and premium gating second;
// the first failing check is the denial reason. Unlimited plans skip the
// usage read.
func (e *Evaluator) CanPerformOperation(ctx context.Context, userID, languageCode string) (Decision, error) {
	if err := requireUser(userID); err != nil {
		return Decision{}, err
	}
	code, err := normalizeLanguageCode(languageCode)
	if err != nil {
		return Decision{}, err
	}

	var (
		ent  Entitlement
		lang *models.Language
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ent, err = e.ResolvePlan(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		lang, err = e.repo.GetLanguageByCode(gctx, code)
		return err
	})
	if err := g.Wait(); err != nil {
		return Decision{}, err
	}
	if lang == nil {
		return Decision{}, unknownLanguage(code)
	}

	decision := Decision{Allowed: true, Entitlement: ent, Language: *lang, Day: e.agg.Day()}

	if !ent.Unlimited {
		used, err := e.agg.DailyTotal(ctx, userID, decision.Day)
		if err != nil {
			return Decision{}, err
		}
		decision.Used = used
		if used >= int64(ent.DailyLimit) {
			return e.deny(ctx, decision, enums.DenialReasonDailyLimitReached), nil
		}
	}

	if lang.IsPremium && ent.PlanType != enums.PlanTypePremium {
		return e.deny(ctx, decision, enums.DenialReasonLanguageRequiresPremium), nil
	}

	e.metrics.IncDecision(ent.PlanType.String(), "allowed")
	return decision, nil
}

func (e *Evaluator) deny(ctx context.Context, decision Decision, reason enums.DenialReason) Decision {
	decision.Allowed = false
	decision.Reason = reason
	e.metrics.IncDecision(decision.Entitlement.PlanType.String(), reason.String())

	ctx = e.logg.WithFields(ctx, map[string]any{
		"plan_type":   decision.Entitlement.PlanType.String(),
		"reason":      reason.String(),
		"used":        decision.Used,
		"daily_limit": decision.Entitlement.DailyLimit,
		"language":    decision.Language.Code,
	})
	e.logg.Info(ctx, "entitlement.denied")
	return decision
}

// CanUseLanguage reports whether the user's plan covers the language.
func (e *Evaluator) CanUseLanguage(ctx context.Context, userID, languageCode string) (bool, error) {
	code, err := normalizeLanguageCode(languageCode)
	if err != nil {
		return false, err
	}
	lang, err := e.repo.GetLanguageByCode(ctx, code)
	if err != nil {
		return false, err
	}
	if lang == nil {
		return false, unknownLanguage(code)
	}
	if !lang.IsPremium {
		return true, nil
	}
	ent, err := e.ResolvePlan(ctx, userID)
	if err != nil {
		return false, err
	}
	return ent.PlanType == enums.PlanTypePremium, nil
}

// AvailableLanguages lists every language for premium users and only the
// free ones otherwise.
func (e *Evaluator) AvailableLanguages(ctx context.Context, userID string) ([]models.Language, error) {
	ent, err := e.ResolvePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	filter := enums.LanguageFilterFree
	if ent.PlanType == enums.PlanTypePremium {
		filter = enums.LanguageFilterAll
	}
	return e.repo.ListLanguages(ctx, filter)
}

// Summary returns the counters shown next to the upload form.
func (e *Evaluator) Summary(ctx context.Context, userID string) (UsageSummary, error) {
	ent, err := e.ResolvePlan(ctx, userID)
	if err != nil {
		return UsageSummary{}, err
	}
	day := e.agg.Day()
	used, err := e.agg.DailyTotal(ctx, userID, day)
	if err != nil {
		return UsageSummary{}, err
	}

	summary := UsageSummary{Entitlement: ent, Day: day, Used: used}
	if !ent.Unlimited {
		remaining := int64(ent.DailyLimit) - used
		if remaining < 0 {
			remaining = 0
		}
		summary.Remaining = &remaining
	}
	return summary, nil
}

func normalizeLanguageCode(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "language is required")
	}
	return code, nil
}

func unknownLanguage(code string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "unsupported language").
		WithDetails(map[string]any{"language": code})
}

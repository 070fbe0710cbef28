package entitlements

import (
	"time"

	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
	"github.com/angelmondragon/extraitexto-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/extraitexto-backend/pkg/errors"
)

// SubscriptionWithPlan is an active subscription together with the plan it grants.
type SubscriptionWithPlan struct {
	Subscription models.Subscription
	Plan         models.Plan
}

// UsageLogWithLanguage is one usage row with its language resolved.
type UsageLogWithLanguage struct {
	Log      models.UsageLog
	Language models.Language
}

// Entitlement is the plan a user is on right now.
type Entitlement struct {
	PlanType     enums.PlanType
	PlanName     string
	DailyLimit   int
	Unlimited    bool
	Subscription *SubscriptionWithPlan
}

// Decision is the outcome of an entitlement check. A denial is a normal
// result and carries its reason.
type Decision struct {
	Allowed     bool
	Reason      enums.DenialReason
	Entitlement Entitlement
	Language    models.Language
	// Used is the day's total at check time; zero when the plan is unlimited.
	Used int64
	Day  time.Time
}

// Err renders a denial as a typed error for transports that need one. It
// returns nil for allowed decisions.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	code := pkgerrors.CodeDailyLimit
	if d.Reason == enums.DenialReasonLanguageRequiresPremium {
		code = pkgerrors.CodePremiumRequired
	}
	return pkgerrors.New(code, d.Reason.Message()).WithDetails(map[string]any{
		"reason":      d.Reason.String(),
		"plan_type":   d.Entitlement.PlanType.String(),
		"daily_limit": d.Entitlement.DailyLimit,
		"used":        d.Used,
		"language":    d.Language.Code,
	})
}

// UsageSummary backs the usage counter shown to the user.
type UsageSummary struct {
	Entitlement Entitlement
	Day         time.Time
	Used        int64
	// Remaining is nil for unlimited plans.
	Remaining *int64
}

// PlanCatalog splits the active plans into the free plan and the paid ones.
type PlanCatalog struct {
	Free    *models.Plan
	Premium []models.Plan
}

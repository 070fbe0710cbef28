package entitlements

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
	"github.com/angelmondragon/extraitexto-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/extraitexto-backend/pkg/errors"
)

// GrantRequest describes a manual premium grant, used by support tooling
// until billing writes subscriptions itself.
type GrantRequest struct {
	UserID   string
	PlanName string
	Period   time.Duration
	Start    time.Time
}

// Granter creates active subscriptions on paid plans.
type Granter struct {
	repo Repository
}

func NewGranter(repo Repository) (*Granter, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Granter{repo: repo}, nil
}

// Grant activates req.PlanName for the user from req.Start for req.Period.
// A user who is already premium gets a conflict error.
func (g *Granter) Grant(ctx context.Context, req GrantRequest) (*SubscriptionWithPlan, error) {
	if _, err := uuid.Parse(strings.TrimSpace(req.UserID)); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "user id must be a uuid")
	}
	if req.Period <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "period must be positive")
	}
	start := req.Start.UTC()

	plan, err := g.paidPlan(ctx, req.PlanName)
	if err != nil {
		return nil, err
	}

	existing, err := g.repo.GetActiveSubscription(ctx, req.UserID, start)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user already has an active subscription").
			WithDetails(map[string]any{"subscription_id": existing.Subscription.ID.String()})
	}

	sub := models.Subscription{
		UserID:             req.UserID,
		PlanID:             plan.ID,
		Status:             enums.SubscriptionStatusActive,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   start.Add(req.Period),
	}
	if err := g.repo.CreateSubscription(ctx, &sub); err != nil {
		return nil, err
	}
	return &SubscriptionWithPlan{Subscription: sub, Plan: *plan}, nil
}

func (g *Granter) paidPlan(ctx context.Context, name string) (*models.Plan, error) {
	plans, err := g.repo.ListActivePlans(ctx)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		if !plans[i].IsFree() && strings.EqualFold(plans[i].Name, strings.TrimSpace(name)) {
			return &plans[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "paid plan not found").
		WithDetails(map[string]any{"plan": name})
}

package entitlements

import (
	"context"
	"errors"

	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
	"github.com/angelmondragon/extraitexto-backend/pkg/enums"
)

// Catalog serves the public plan and language listings.
type Catalog struct {
	repo Repository
}

func NewCatalog(repo Repository) (*Catalog, error) {
	if repo == nil {
		return nil, errors.New("repo is required")
	}
	return &Catalog{repo: repo}, nil
}

// Plans returns the active plans split into the free plan and paid plans,
// each group ordered by price.
func (c *Catalog) Plans(ctx context.Context) (PlanCatalog, error) {
	plans, err := c.repo.ListActivePlans(ctx)
	if err != nil {
		return PlanCatalog{}, err
	}
	catalog := PlanCatalog{Premium: make([]models.Plan, 0, len(plans))}
	for i := range plans {
		if plans[i].IsFree() {
			if catalog.Free == nil {
				catalog.Free = &plans[i]
			}
			continue
		}
		catalog.Premium = append(catalog.Premium, plans[i])
	}
	return catalog, nil
}

func (c *Catalog) Languages(ctx context.Context, filter enums.LanguageFilter) ([]models.Language, error) {
	return c.repo.ListLanguages(ctx, filter)
}

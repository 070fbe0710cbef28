package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/extraitexto-backend/api/responses"
	"github.com/angelmondragon/extraitexto-backend/internal/entitlements"
	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
	"github.com/angelmondragon/extraitexto-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/extraitexto-backend/pkg/errors"
	"github.com/angelmondragon/extraitexto-backend/pkg/logger"
)

// CatalogService serves the public plan and language listings.
type CatalogService interface {
	Plans(ctx context.Context) (entitlements.PlanCatalog, error)
	Languages(ctx context.Context, filter enums.LanguageFilter) ([]models.Language, error)
}

// ListPlans returns the free plan and the premium plans.
func ListPlans(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		catalog, err := svc.Plans(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPlanCatalogResponse(catalog))
	}
}

// ListLanguages returns the language catalog narrowed by ?filter=all|premium|free.
func ListLanguages(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		filter, err := enums.ParseLanguageFilter(r.URL.Query().Get("filter"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid filter").
				WithDetails(map[string]any{"field": "filter"}))
			return
		}
		langs, err := svc.Languages(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toLanguageResponses(langs))
	}
}

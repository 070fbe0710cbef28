package migrate

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/extraitexto-backend/pkg/db/models"
)

func strPtr(s string) *string { return &s }

// DefaultPlans mirrors the rows inserted by the seed migration.
func DefaultPlans() []models.Plan {
	return []models.Plan{
		{
			Name:        "Free",
			Description: strPtr("Plano gratuito com recursos básicos"),
			Price:       decimal.Zero,
			DailyLimit:  3,
			IsActive:    true,
			Features:    []string{"OCR básico", "Suporte a JPG e PNG", "3 extrações por dia"},
		},
		{
			Name:        "Premium",
			Description: strPtr("Plano premium com recursos avançados"),
			Price:       decimal.RequireFromString("29.90"),
			DailyLimit:  999999,
			IsActive:    true,
			Features:    []string{"OCR avançado", "Suporte a todos formatos", "Extrações ilimitadas", "Suporte prioritário"},
		},
	}
}

// DefaultLanguages mirrors the language rows inserted by the seed migration.
func DefaultLanguages() []models.Language {
	return []models.Language{
		{Code: "pt", Name: "Português"},
		{Code: "en", Name: "English"},
		{Code: "es", Name: "Español", IsPremium: true},
		{Code: "fr", Name: "Français", IsPremium: true},
		{Code: "de", Name: "Deutsch", IsPremium: true},
	}
}

// Seed inserts the default catalog when missing. Existing rows are left alone.
func Seed(ctx context.Context, conn *gorm.DB) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, plan := range DefaultPlans() {
			plan := plan
			if err := tx.Where("name = ?", plan.Name).FirstOrCreate(&plan).Error; err != nil {
				return fmt.Errorf("seeding plan %s: %w", plan.Name, err)
			}
		}
		for _, lang := range DefaultLanguages() {
			lang := lang
			if err := tx.Where("code = ?", lang.Code).FirstOrCreate(&lang).Error; err != nil {
				return fmt.Errorf("seeding language %s: %w", lang.Code, err)
			}
		}
		return nil
	})
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UnlimitedDailyLimit is the smallest daily limit treated as unlimited.
const UnlimitedDailyLimit = 1000

// Plan is a catalog entry. A price of zero marks the free plan.
type Plan struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Description *string         `gorm:"column:description"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	DailyLimit  int             `gorm:"column:daily_limit;not null"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	Features    []string        `gorm:"column:features;serializer:json;type:jsonb"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Plan) TableName() string { return "plans" }

func (p *Plan) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsFree reports whether the plan costs nothing.
func (p Plan) IsFree() bool {
	return p.Price.IsZero()
}

// Unlimited reports whether the plan's daily limit is high enough to skip counting.
func (p Plan) Unlimited() bool {
	return p.DailyLimit >= UnlimitedDailyLimit
}

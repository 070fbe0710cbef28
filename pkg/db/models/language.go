package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Language is an OCR language; premium ones need an active subscription.
type Language struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Code      string    `gorm:"column:code;not null;uniqueIndex"`
	Name      string    `gorm:"column:name;not null"`
	IsPremium bool      `gorm:"column:is_premium;not null;default:false"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Language) TableName() string { return "languages" }

func (l *Language) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

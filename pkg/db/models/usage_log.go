package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UsageLog counts successful operations per user, language and UTC day.
type UsageLog struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	UserID       string    `gorm:"column:user_id;type:uuid;not null;uniqueIndex:usage_logs_user_language_date,priority:1"`
	LanguageID   uuid.UUID `gorm:"column:language_id;type:uuid;not null;uniqueIndex:usage_logs_user_language_date,priority:2"`
	Date         time.Time `gorm:"column:date;type:date;not null;uniqueIndex:usage_logs_user_language_date,priority:3"`
	RequestCount int       `gorm:"column:request_count;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (UsageLog) TableName() string { return "usage_logs" }

func (u *UsageLog) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// UsageDay truncates t to the start of its UTC calendar day.
func UsageDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

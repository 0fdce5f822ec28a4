package models

import (
	"time"

	"github.com/google/uuid"
)

// RegistryItem is a gift-registry entry owned by a wedding. CurrentCents is a
// cache derived from completed contributions; the recalculator may rebuild it
// from scratch at any time.
type RegistryItem struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WeddingID    uuid.UUID `gorm:"column:wedding_id;type:uuid;not null;index"`
	Title        string    `gorm:"column:title;not null"`
	GoalCents    int64     `gorm:"column:goal_cents;not null"`
	CurrentCents int64     `gorm:"column:current_cents;not null;default:0"`
	Active       bool      `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

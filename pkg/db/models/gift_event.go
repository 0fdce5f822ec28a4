package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/nuptio/nuptio-backend/pkg/enums"
)

// GiftEvent records an immutable money lifecycle event tied to a contribution.
type GiftEvent struct {
	ID             uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ContributionID uuid.UUID           `gorm:"column:contribution_id;type:uuid;not null;index"`
	WeddingID      uuid.UUID           `gorm:"column:wedding_id;type:uuid;not null"`
	RegistryItemID uuid.UUID           `gorm:"column:registry_item_id;type:uuid;not null"`
	Type           enums.GiftEventType `gorm:"column:type;type:gift_event_type_enum;not null"`
	AmountCents    int64               `gorm:"column:amount_cents;not null"`
	Metadata       json.RawMessage     `gorm:"column:metadata;type:jsonb"`
	CreatedAt      time.Time           `gorm:"column:created_at;autoCreateTime"`
}

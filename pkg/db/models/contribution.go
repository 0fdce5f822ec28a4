package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/nuptio/nuptio-backend/pkg/enums"
)

// Contribution is one gift attempt against a registry item. AmountCents is
// always what the couple nets after commission; it gets recomputed, never
// incremented, when reconciliation rewrites the row.
// OriginalRequestedCents keeps the first-attempt total for audit and is never
// rewritten.
type Contribution struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RegistryItemID uuid.UUID                `gorm:"column:registry_item_id;type:uuid;not null;index"`
	WeddingID      uuid.UUID                `gorm:"column:wedding_id;type:uuid;not null;index"`
	Status         enums.ContributionStatus `gorm:"column:status;type:contribution_status;not null;default:'pending'"`

	AmountCents            int64 `gorm:"column:amount_cents;not null"`
	OriginalRequestedCents int64 `gorm:"column:original_requested_cents;not null"`
	GuestCoversFee         bool  `gorm:"column:guest_covers_fee;not null;default:false"`

	CheckoutSessionID *string `gorm:"column:checkout_session_id"`
	PaymentIntentID   *string `gorm:"column:payment_intent_id;index"`
	StripeCustomerID  *string `gorm:"column:stripe_customer_id;index"`
	ChargeID          *string `gorm:"column:charge_id"`

	ParentContributionID *uuid.UUID `gorm:"column:parent_contribution_id;type:uuid"`

	GuestName  string  `gorm:"column:guest_name;not null"`
	GuestEmail *string `gorm:"column:guest_email"`
	Message    *string `gorm:"column:message"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

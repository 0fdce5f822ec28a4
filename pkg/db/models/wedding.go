package models

import (
	"time"

	"github.com/google/uuid"
)

// Wedding is the read model this core consumes. The onboarding flow owns it;
// the payments core only reads the connected account linkage and plan.
// ChargesEnabled/PayoutsEnabled are cached onboarding snapshots; checkout
// still verifies the live account because status can degrade after onboarding.
type Wedding struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug            string    `gorm:"column:slug;not null;uniqueIndex"`
	BillingPlanID   *string   `gorm:"column:billing_plan_id"`
	StripeAccountID *string   `gorm:"column:stripe_account_id;index"`
	ChargesEnabled  bool      `gorm:"column:charges_enabled;not null;default:false"`
	PayoutsEnabled  bool      `gorm:"column:payouts_enabled;not null;default:false"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

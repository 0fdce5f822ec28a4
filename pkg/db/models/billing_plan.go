package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/nuptio/nuptio-backend/pkg/enums"
)

// BillingPlan captures a subscription tier. CommissionCents is the flat
// platform fee charged per contribution while the plan is in effect.
type BillingPlan struct {
	ID              string           `gorm:"column:id;primaryKey"`
	Name            string           `gorm:"column:name;not null"`
	Status          enums.PlanStatus `gorm:"column:status;type:plan_status;not null"`
	IsDefault       bool             `gorm:"column:is_default;not null;default:false"`
	CommissionCents int64            `gorm:"column:commission_cents;not null"`
	PriceAmount     decimal.Decimal  `gorm:"column:price_amount;type:numeric(12,2);not null"`
	CurrencyCode    string           `gorm:"column:currency_code;not null"`
	Features        pq.StringArray   `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nmviana/vendimia-backend/pkg/enums"
)

// PayoutPolicy holds per-vendor settlement configuration. It is read by the
// batcher to decide eligibility and mutated only through the policy service,
// which validates ranges at the boundary.
type PayoutPolicy struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID          uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null;uniqueIndex:ux_payout_policies_vendor_id"`
	Frequency         enums.PayoutFrequency `gorm:"column:frequency;type:payout_frequency;not null;default:'weekly'"`
	MinimumPayout     decimal.Decimal       `gorm:"column:minimum_payout;type:numeric(12,2);not null"`
	Method            enums.PayoutMethod    `gorm:"column:method;type:payout_method;not null;default:'stripe_connect'"`
	NextScheduledDate time.Time             `gorm:"column:next_scheduled_date;not null"`
	IsActive          bool                  `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

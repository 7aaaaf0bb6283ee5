package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nmviana/vendimia-backend/pkg/enums"
)

// CommissionRate configures the platform's cut for a vendor, optionally
// scoped to a single category. A row with a nil VendorID is the platform
// default used when no vendor-level configuration exists. At most one rate
// may be effective for a given (vendor, category) pair at any instant.
type CommissionRate struct {
	ID            uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID      *uuid.UUID       `gorm:"column:vendor_id;type:uuid;index"`
	CategoryID    *uuid.UUID       `gorm:"column:category_id;type:uuid"`
	Rate          decimal.Decimal  `gorm:"column:rate;type:numeric(12,4);not null"`
	RateType      enums.RateType   `gorm:"column:rate_type;type:commission_rate_type;not null;default:'percentage'"`
	MinAmount     *decimal.Decimal `gorm:"column:min_amount;type:numeric(12,2)"`
	MaxAmount     *decimal.Decimal `gorm:"column:max_amount;type:numeric(12,2)"`
	EffectiveFrom time.Time        `gorm:"column:effective_from;not null"`
	EffectiveTo   *time.Time       `gorm:"column:effective_to"`
	CreatedAt     time.Time        `gorm:"column:created_at;autoCreateTime"`
}

// ActiveAt reports whether the rate window covers the provided instant.
// EffectiveTo is exclusive; a nil EffectiveTo means open-ended.
func (r CommissionRate) ActiveAt(at time.Time) bool {
	if at.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !at.Before(*r.EffectiveTo) {
		return false
	}
	return true
}

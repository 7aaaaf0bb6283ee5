package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nmviana/vendimia-backend/pkg/enums"
)

// CommissionEntry is the append-only record of the platform's earned cut from
// one settled order. Amount is computed once at creation and never
// recalculated; the unique index on OrderID is the idempotency backstop
// against double recording. PayoutID is set exactly once when the entry is
// absorbed into a payout batch.
type CommissionEntry struct {
	ID         uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID   uuid.UUID                   `gorm:"column:vendor_id;type:uuid;not null;index"`
	OrderID    uuid.UUID                   `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_commission_entries_order_id"`
	CategoryID *uuid.UUID                  `gorm:"column:category_id;type:uuid"`
	OrderTotal decimal.Decimal             `gorm:"column:order_total;type:numeric(12,2);not null"`
	Rate       decimal.Decimal             `gorm:"column:rate;type:numeric(12,4);not null"`
	RateType   enums.RateType              `gorm:"column:rate_type;type:commission_rate_type;not null"`
	Amount     decimal.Decimal             `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency   enums.Currency              `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status     enums.CommissionEntryStatus `gorm:"column:status;type:commission_entry_status;not null;default:'pending'"`
	PayoutID   *uuid.UUID                  `gorm:"column:payout_id;type:uuid;index"`
	CreatedAt  time.Time                   `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nmviana/vendimia-backend/pkg/enums"
)

// Payout is a single money-transfer unit aggregating one vendor's unsettled
// commission entries. Amount equals the exact sum of the absorbed entries and
// is immutable after creation. Status transitions are owned exclusively by
// the payout processor through compare-and-set updates.
type Payout struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID      uuid.UUID          `gorm:"column:vendor_id;type:uuid;not null;index"`
	Amount        decimal.Decimal    `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency      enums.Currency     `gorm:"column:currency;type:text;not null;default:'USD'"`
	Status        enums.PayoutStatus `gorm:"column:status;type:payout_status;not null;default:'pending'"`
	Method        enums.PayoutMethod `gorm:"column:method;type:payout_method;not null"`
	ScheduledDate time.Time          `gorm:"column:scheduled_date;not null"`
	ProcessedAt   *time.Time         `gorm:"column:processed_at"`
	AttemptCount  int                `gorm:"column:attempt_count;not null;default:0"`
	FailureReason *string            `gorm:"column:failure_reason"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

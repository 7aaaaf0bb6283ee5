package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is the settlement-scoped view of a marketplace vendor: the account
// reference the transfer gateway needs plus an activity flag. The wider
// vendor profile lives with the catalog service and is not mirrored here.
type Vendor struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string    `gorm:"column:name;not null"`
	PayoutAccountRef string    `gorm:"column:payout_account_ref;not null"`
	IsActive         bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nmviana/vendimia-backend/pkg/enums"
)

// CommissionRecordedEvent is emitted once per ledger entry, in the same
// transaction that created the entry.
type CommissionRecordedEvent struct {
	EntryID    uuid.UUID       `json:"entryId"`
	VendorID   uuid.UUID       `json:"vendorId"`
	OrderID    uuid.UUID       `json:"orderId"`
	OrderTotal decimal.Decimal `json:"orderTotal"`
	Amount     decimal.Decimal `json:"amount"`
	Rate       decimal.Decimal `json:"rate"`
	RateType   enums.RateType  `json:"rateType"`
	RecordedAt time.Time       `json:"recordedAt"`
}

// PayoutCreatedEvent is emitted when a batch absorbs unsettled entries.
type PayoutCreatedEvent struct {
	PayoutID   uuid.UUID       `json:"payoutId"`
	VendorID   uuid.UUID       `json:"vendorId"`
	Amount     decimal.Decimal `json:"amount"`
	EntryCount int             `json:"entryCount"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// PayoutProcessingEvent is emitted when the processor claims a payout.
type PayoutProcessingEvent struct {
	PayoutID  uuid.UUID `json:"payoutId"`
	VendorID  uuid.UUID `json:"vendorId"`
	Attempt   int       `json:"attempt"`
	ClaimedAt time.Time `json:"claimedAt"`
}

// PayoutCompletedEvent is emitted when the external transfer succeeds.
type PayoutCompletedEvent struct {
	PayoutID    uuid.UUID       `json:"payoutId"`
	VendorID    uuid.UUID       `json:"vendorId"`
	Amount      decimal.Decimal `json:"amount"`
	ProcessedAt time.Time       `json:"processedAt"`
}

// PayoutFailedEvent is emitted on both transient and permanent failures.
type PayoutFailedEvent struct {
	PayoutID  uuid.UUID `json:"payoutId"`
	VendorID  uuid.UUID `json:"vendorId"`
	Attempt   int       `json:"attempt"`
	Permanent bool      `json:"permanent"`
	Reason    string    `json:"reason"`
	FailedAt  time.Time `json:"failedAt"`
	WillRetry bool      `json:"willRetry"`
}

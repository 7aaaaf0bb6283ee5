package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nmviana/vendimia-backend/pkg/enums"
)

// TransferRequest describes a single funds transfer to a vendor's payout account.
// PayoutID doubles as the provider idempotency key so retries of the same payout
// never move money twice.
type TransferRequest struct {
	PayoutID         uuid.UUID
	VendorAccountRef string
	Amount           decimal.Decimal
	Currency         enums.Currency
	Description      string
}

// TransferResult reports the provider-side reference for a successful transfer.
type TransferResult struct {
	Reference string
}

// TransferGateway abstracts the payment provider used to move funds out.
type TransferGateway interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}

// TransferError wraps a provider failure with a retry classification. Transient
// failures (timeouts, provider outages, rate limits) are safe to retry with the
// same idempotency key; permanent failures are not.
type TransferError struct {
	Reason    string
	Transient bool
	Err       error
}

func (e *TransferError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transfer failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transfer failed: %s", e.Reason)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a retryable transfer failure.
func IsTransient(err error) bool {
	var tErr *TransferError
	if errors.As(err, &tErr) {
		return tErr.Transient
	}
	return false
}

// FailureReason extracts the provider-facing reason from a transfer error,
// falling back to the raw error text.
func FailureReason(err error) string {
	var tErr *TransferError
	if errors.As(err, &tErr) {
		return tErr.Reason
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func validateRequest(req TransferRequest) error {
	if req.PayoutID == uuid.Nil {
		return errors.New("payout id is required")
	}
	if req.VendorAccountRef == "" {
		return errors.New("vendor account ref is required")
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("transfer amount must be positive, got %s", req.Amount)
	}
	if !req.Currency.IsValid() {
		return fmt.Errorf("invalid currency %q", req.Currency)
	}
	return nil
}

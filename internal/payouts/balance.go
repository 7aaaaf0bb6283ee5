package payouts

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmviana/vendimia-backend/internal/commission"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
)

// VendorBalance is the settlement view of a vendor's money position.
// Reserved covers payouts already committed to (pending or processing);
// Available is what a future batch could still pick up.
type VendorBalance struct {
	VendorID      uuid.UUID
	TotalEarnings decimal.Decimal
	PaidOut       decimal.Decimal
	Reserved      decimal.Decimal
	Available     decimal.Decimal
}

// BalanceServiceParams groups dependencies for the balance service.
type BalanceServiceParams struct {
	Repo    Repository
	Entries commission.Repository
}

// BalanceService computes vendor balances from the ledger and payout tables.
type BalanceService struct {
	repo    Repository
	entries commission.Repository
}

// NewBalanceService builds the balance service.
func NewBalanceService(params BalanceServiceParams) (*BalanceService, error) {
	if params.Repo == nil {
		return nil, errors.New("payouts repository is required")
	}
	if params.Entries == nil {
		return nil, errors.New("commission repository is required")
	}
	return &BalanceService{repo: params.Repo, entries: params.Entries}, nil
}

// Balance returns the vendor's current position. Only completed payouts
// reduce the paid-out total; in-flight payouts show up as reserved.
func (s *BalanceService) Balance(ctx context.Context, vendorID uuid.UUID) (*VendorBalance, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if _, err := s.repo.FindVendorByID(ctx, vendorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, err
	}

	earnings, err := s.entries.SumEarningsByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	paidOut, err := s.repo.SumCompletedByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	reserved, err := s.repo.SumReservedByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	return &VendorBalance{
		VendorID:      vendorID,
		TotalEarnings: earnings,
		PaidOut:       paidOut,
		Reserved:      reserved,
		Available:     earnings.Sub(paidOut).Sub(reserved),
	}, nil
}

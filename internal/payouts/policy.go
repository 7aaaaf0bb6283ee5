package payouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nmviana/vendimia-backend/pkg/db/models"
	"github.com/nmviana/vendimia-backend/pkg/enums"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
	"github.com/nmviana/vendimia-backend/pkg/logger"
)

var (
	minimumPayoutFloor   = decimal.NewFromInt(1)
	minimumPayoutCeiling = decimal.NewFromInt(1_000_000)
)

// PolicyInput captures the vendor-editable payout configuration.
type PolicyInput struct {
	Frequency     enums.PayoutFrequency
	MinimumPayout decimal.Decimal
	Method        enums.PayoutMethod
	IsActive      bool
}

// PolicyServiceParams groups dependencies for the policy service.
type PolicyServiceParams struct {
	Repo   PolicyRepository
	Logger *logger.Logger
	Now    func() time.Time
}

// PolicyService manages per-vendor payout policies.
type PolicyService struct {
	repo PolicyRepository
	logg *logger.Logger
	now  func() time.Time
}

// NewPolicyService builds the payout policy service.
func NewPolicyService(params PolicyServiceParams) (*PolicyService, error) {
	if params.Repo == nil {
		return nil, errors.New("policy repository is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &PolicyService{
		repo: params.Repo,
		logg: params.Logger,
		now:  now,
	}, nil
}

// Upsert creates or replaces the vendor's payout policy. A frequency change
// recomputes the next scheduled date from now rather than stacking onto the
// previous schedule.
func (s *PolicyService) Upsert(ctx context.Context, vendorID uuid.UUID, input PolicyInput) (*models.PayoutPolicy, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if err := validatePolicyInput(input); err != nil {
		return nil, err
	}

	now := s.now()
	existing, err := s.repo.FindByVendor(ctx, vendorID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if existing == nil {
		policy := &models.PayoutPolicy{
			VendorID:          vendorID,
			Frequency:         input.Frequency,
			MinimumPayout:     input.MinimumPayout,
			Method:            input.Method,
			NextScheduledDate: input.Frequency.Next(now),
			IsActive:          input.IsActive,
		}
		if err := s.repo.Create(ctx, policy); err != nil {
			return nil, err
		}
		if s.logg != nil {
			logCtx := s.logg.WithVendorID(ctx, vendorID.String())
			s.logg.Info(logCtx, fmt.Sprintf("payout policy created: %s minimum %s", policy.Frequency, policy.MinimumPayout))
		}
		return policy, nil
	}

	if existing.Frequency != input.Frequency {
		existing.NextScheduledDate = input.Frequency.Next(now)
	}
	existing.Frequency = input.Frequency
	existing.MinimumPayout = input.MinimumPayout
	existing.Method = input.Method
	existing.IsActive = input.IsActive
	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, err
	}
	if s.logg != nil {
		logCtx := s.logg.WithVendorID(ctx, vendorID.String())
		s.logg.Info(logCtx, fmt.Sprintf("payout policy updated: %s minimum %s", existing.Frequency, existing.MinimumPayout))
	}
	return existing, nil
}

// Get returns the vendor's payout policy.
func (s *PolicyService) Get(ctx context.Context, vendorID uuid.UUID) (*models.PayoutPolicy, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	policy, err := s.repo.FindByVendor(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout policy not found")
		}
		return nil, err
	}
	return policy, nil
}

func validatePolicyInput(input PolicyInput) error {
	if !input.Frequency.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payout frequency %q", input.Frequency))
	}
	if !input.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payout method %q", input.Method))
	}
	if input.MinimumPayout.LessThan(minimumPayoutFloor) || input.MinimumPayout.GreaterThan(minimumPayoutCeiling) {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("minimum payout must be between %s and %s", minimumPayoutFloor, minimumPayoutCeiling))
	}
	return nil
}

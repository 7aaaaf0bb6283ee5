package commission

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
)

// ResolvedRate is the effective commission configuration for one order.
type ResolvedRate struct {
	RateID    uuid.UUID
	Rate      decimal.Decimal
	RateType  enums.RateType
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
}

// Resolver picks the commission rate that applies to an order. Lookup walks
// the specificity chain: category-scoped vendor rate, then the vendor's
// default rate, then the platform default (the row with a null vendor id).
type Resolver struct {
	repo Repository
}

// NewResolver builds a rate resolver.
func NewResolver(repo Repository) (*Resolver, error) {
	if repo == nil {
		return nil, errors.New("commission repository is required")
	}
	return &Resolver{repo: repo}, nil
}

func (r *Resolver) Resolve(ctx context.Context, vendorID uuid.UUID, categoryID *uuid.UUID, at time.Time) (*ResolvedRate, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if at.IsZero() {
		at = time.Now()
	}

	if categoryID != nil && *categoryID != uuid.Nil {
		rate, err := r.repo.FindCategoryRate(ctx, vendorID, *categoryID, at)
		if err == nil {
			return resolvedFrom(rate), nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	rate, err := r.repo.FindVendorDefaultRate(ctx, vendorID, at)
	if err == nil {
		return resolvedFrom(rate), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	rate, err = r.repo.FindPlatformDefaultRate(ctx, at)
	if err == nil {
		return resolvedFrom(rate), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return nil, pkgerrors.New(pkgerrors.CodeRateNotFound,
		fmt.Sprintf("no commission rate configured for vendor %s", vendorID))
}

func resolvedFrom(rate *models.CommissionRate) *ResolvedRate {
	return &ResolvedRate{
		RateID:    rate.ID,
		Rate:      rate.Rate,
		RateType:  rate.RateType,
		MinAmount: rate.MinAmount,
		MaxAmount: rate.MaxAmount,
	}
}

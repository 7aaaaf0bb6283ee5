package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nmviana/vendimia-backend/api/controllers/vendoraccess"
	"github.com/nmviana/vendimia-backend/api/responses"
	"github.com/nmviana/vendimia-backend/api/validators"
	"github.com/nmviana/vendimia-backend/internal/payouts"
	"github.com/nmviana/vendimia-backend/pkg/db/models"
	"github.com/nmviana/vendimia-backend/pkg/enums"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
	"github.com/nmviana/vendimia-backend/pkg/logger"
)

type payoutPolicyRequest struct {
	Frequency     string `json:"frequency" validate:"required"`
	MinimumPayout string `json:"minimum_payout" validate:"required"`
	Method        string `json:"method" validate:"required"`
	IsActive      *bool  `json:"is_active"`
}

type payoutPolicyResponse struct {
	VendorID          string    `json:"vendor_id"`
	Frequency         string    `json:"frequency"`
	MinimumPayout     string    `json:"minimum_payout"`
	Method            string    `json:"method"`
	NextScheduledDate time.Time `json:"next_scheduled_date"`
	IsActive          bool      `json:"is_active"`
}

type PolicyService interface {
	Upsert(ctx context.Context, vendorID uuid.UUID, input payouts.PolicyInput) (*models.PayoutPolicy, error)
	Get(ctx context.Context, vendorID uuid.UUID) (*models.PayoutPolicy, error)
}

func PayoutPolicyFetch(svc PolicyService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "policy service unavailable"))
			return
		}

		vendorID, err := vendoraccess.ResolveVendorID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		policy, err := svc.Get(ctx, vendorID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPolicyResponse(policy))
	}
}

func PayoutPolicyUpsert(svc PolicyService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "policy service unavailable"))
			return
		}

		vendorID, err := vendoraccess.ResolveVendorID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var body payoutPolicyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input, err := toPolicyInput(body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		policy, err := svc.Upsert(ctx, vendorID, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toPolicyResponse(policy))
	}
}

func toPolicyInput(body payoutPolicyRequest) (payouts.PolicyInput, error) {
	frequency, err := enums.ParsePayoutFrequency(body.Frequency)
	if err != nil {
		return payouts.PolicyInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid frequency")
	}
	method, err := enums.ParsePayoutMethod(body.Method)
	if err != nil {
		return payouts.PolicyInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid method")
	}
	minimum, err := decimal.NewFromString(body.MinimumPayout)
	if err != nil {
		return payouts.PolicyInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid minimum payout")
	}

	active := true
	if body.IsActive != nil {
		active = *body.IsActive
	}

	return payouts.PolicyInput{
		Frequency:     frequency,
		MinimumPayout: minimum,
		Method:        method,
		IsActive:      active,
	}, nil
}

func toPolicyResponse(p *models.PayoutPolicy) payoutPolicyResponse {
	return payoutPolicyResponse{
		VendorID:          p.VendorID.String(),
		Frequency:         string(p.Frequency),
		MinimumPayout:     p.MinimumPayout.StringFixed(2),
		Method:            string(p.Method),
		NextScheduledDate: p.NextScheduledDate.UTC(),
		IsActive:          p.IsActive,
	}
}

package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nmviana/vendimia-backend/api/responses"
	"github.com/nmviana/vendimia-backend/api/validators"
	"github.com/nmviana/vendimia-backend/internal/commission"
	"github.com/nmviana/vendimia-backend/pkg/db/models"
	"github.com/nmviana/vendimia-backend/pkg/enums"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
	"github.com/nmviana/vendimia-backend/pkg/logger"
)

type recordCommissionRequest struct {
	VendorID   string  `json:"vendor_id" validate:"required"`
	OrderID    string  `json:"order_id" validate:"required"`
	CategoryID *string `json:"category_id"`
	OrderTotal string  `json:"order_total" validate:"required"`
	Currency   string  `json:"currency" validate:"required"`
	SettledAt  string  `json:"settled_at" validate:"required"`
}

type commissionEntryResponse struct {
	ID         string    `json:"id"`
	VendorID   string    `json:"vendor_id"`
	OrderID    string    `json:"order_id"`
	OrderTotal string    `json:"order_total"`
	Rate       string    `json:"rate"`
	RateType   string    `json:"rate_type"`
	Amount     string    `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type CommissionRecorder interface {
	Record(ctx context.Context, input commission.RecordOrderInput) (*models.CommissionEntry, error)
}

// InternalRecordCommission accepts settled-order notifications from the order
// service. Replays of the same order return the original entry unchanged.
func InternalRecordCommission(svc CommissionRecorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission ledger unavailable"))
			return
		}

		var body recordCommissionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input, err := toRecordInput(body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		entry, err := svc.Record(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toCommissionEntryResponse(entry))
	}
}

func toRecordInput(body recordCommissionRequest) (commission.RecordOrderInput, error) {
	vendorID, err := uuid.Parse(body.VendorID)
	if err != nil {
		return commission.RecordOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid vendor id")
	}
	orderID, err := uuid.Parse(body.OrderID)
	if err != nil {
		return commission.RecordOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}

	var categoryID *uuid.UUID
	if body.CategoryID != nil && *body.CategoryID != "" {
		parsed, parseErr := uuid.Parse(*body.CategoryID)
		if parseErr != nil {
			return commission.RecordOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid category id")
		}
		categoryID = &parsed
	}

	orderTotal, err := decimal.NewFromString(body.OrderTotal)
	if err != nil {
		return commission.RecordOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order total")
	}

	currency, err := enums.ParseCurrency(body.Currency)
	if err != nil {
		return commission.RecordOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
	}

	settledAt, err := time.Parse(time.RFC3339, body.SettledAt)
	if err != nil {
		return commission.RecordOrderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "settled_at must be RFC3339")
	}

	return commission.RecordOrderInput{
		VendorID:   vendorID,
		OrderID:    orderID,
		CategoryID: categoryID,
		OrderTotal: orderTotal,
		Currency:   currency,
		SettledAt:  settledAt,
	}, nil
}

func toCommissionEntryResponse(e *models.CommissionEntry) commissionEntryResponse {
	return commissionEntryResponse{
		ID:         e.ID.String(),
		VendorID:   e.VendorID.String(),
		OrderID:    e.OrderID.String(),
		OrderTotal: e.OrderTotal.StringFixed(2),
		Rate:       e.Rate.String(),
		RateType:   string(e.RateType),
		Amount:     e.Amount.StringFixed(2),
		Currency:   string(e.Currency),
		Status:     string(e.Status),
		CreatedAt:  e.CreatedAt.UTC(),
	}
}

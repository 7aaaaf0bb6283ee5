package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/nmviana/vendimia-backend/api/controllers/vendoraccess"
	"github.com/nmviana/vendimia-backend/api/responses"
	"github.com/nmviana/vendimia-backend/internal/payouts"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
	"github.com/nmviana/vendimia-backend/pkg/logger"
)

type vendorBalanceResponse struct {
	VendorID      string `json:"vendor_id"`
	TotalEarnings string `json:"total_earnings"`
	PaidOut       string `json:"paid_out"`
	Reserved      string `json:"reserved"`
	Available     string `json:"available"`
}

type BalanceService interface {
	Balance(ctx context.Context, vendorID uuid.UUID) (*payouts.VendorBalance, error)
}

func VendorBalance(svc BalanceService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "balance service unavailable"))
			return
		}

		vendorID, err := vendoraccess.ResolveVendorID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		balance, err := svc.Balance(ctx, vendorID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, vendorBalanceResponse{
			VendorID:      balance.VendorID.String(),
			TotalEarnings: balance.TotalEarnings.StringFixed(2),
			PaidOut:       balance.PaidOut.StringFixed(2),
			Reserved:      balance.Reserved.StringFixed(2),
			Available:     balance.Available.StringFixed(2),
		})
	}
}

package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nmviana/vendimia-backend/api/controllers/vendoraccess"
	"github.com/nmviana/vendimia-backend/api/responses"
	"github.com/nmviana/vendimia-backend/api/validators"
	"github.com/nmviana/vendimia-backend/pkg/db/models"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
	"github.com/nmviana/vendimia-backend/pkg/logger"
	"github.com/nmviana/vendimia-backend/pkg/pagination"
)

// sanitizedFailureReason replaces provider error detail for vendor-facing
// listings. The raw reason stays visible to admins only.
const sanitizedFailureReason = "pending investigation"

type vendorPayout struct {
	ID            string     `json:"id"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	Method        string     `json:"method"`
	ScheduledDate time.Time  `json:"scheduled_date"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	AttemptCount  int        `json:"attempt_count"`
	FailureReason *string    `json:"failure_reason,omitempty"`
}

type vendorPayoutsResponse struct {
	Payouts    []vendorPayout `json:"payouts"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

type PayoutLister interface {
	ListPayoutsByVendor(ctx context.Context, vendorID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Payout, error)
}

func VendorPayouts(repo PayoutLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if repo == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout repository unavailable"))
			return
		}

		vendorID, err := vendoraccess.ResolveVendorID(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		cursor, err := pagination.ParseCursor(r.URL.Query().Get("cursor"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor"))
			return
		}

		items, err := repo.ListPayoutsByVendor(ctx, vendorID, cursor, pagination.LimitWithBuffer(limit))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var nextCursor string
		if len(items) > limit {
			items = items[:limit]
			last := items[len(items)-1]
			nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		}

		admin := vendoraccess.IsAdmin(r)
		payload := vendorPayoutsResponse{
			Payouts:    make([]vendorPayout, len(items)),
			NextCursor: nextCursor,
		}
		for i, p := range items {
			payload.Payouts[i] = toVendorPayout(p, admin)
		}

		responses.WriteSuccess(w, payload)
	}
}

type PayoutReleaser interface {
	ReleaseFrozen(ctx context.Context, payoutID uuid.UUID) (*models.Payout, error)
}

// AdminRetryPayout releases a frozen payout back to pending so the next
// settlement cycle picks it up again.
func AdminRetryPayout(svc PayoutReleaser, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout processor unavailable"))
			return
		}

		payoutID, err := uuid.Parse(chi.URLParam(r, "payoutId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout id"))
			return
		}

		payout, err := svc.ReleaseFrozen(ctx, payoutID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, toVendorPayout(*payout, true))
	}
}

func toVendorPayout(p models.Payout, admin bool) vendorPayout {
	out := vendorPayout{
		ID:            p.ID.String(),
		Amount:        p.Amount.StringFixed(2),
		Currency:      string(p.Currency),
		Status:        string(p.Status),
		Method:        string(p.Method),
		ScheduledDate: p.ScheduledDate.UTC(),
		ProcessedAt:   p.ProcessedAt,
		AttemptCount:  p.AttemptCount,
	}
	if p.FailureReason != nil {
		if admin {
			out.FailureReason = p.FailureReason
		} else {
			reason := sanitizedFailureReason
			out.FailureReason = &reason
		}
	}
	return out
}

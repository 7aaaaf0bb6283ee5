package controllers

import (
	"context"
	"net/http"

	"github.com/nmviana/vendimia-backend/api/responses"
	"github.com/nmviana/vendimia-backend/internal/settlement"
	pkgerrors "github.com/nmviana/vendimia-backend/pkg/errors"
	"github.com/nmviana/vendimia-backend/pkg/logger"
)

type settlementRunResponse struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Demoted   int `json:"demoted"`
}

type SettlementRunner interface {
	Run(ctx context.Context) (settlement.Summary, error)
}

// AdminSettlementRun triggers a settlement cycle outside the cron schedule.
// Vendor failures inside the cycle are reported in the summary, not as an
// HTTP error.
func AdminSettlementRun(runner SettlementRunner, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if runner == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement scheduler unavailable"))
			return
		}

		summary, err := runner.Run(ctx)
		if err != nil && summary.Processed == 0 && summary.Failed == 0 && summary.Skipped == 0 {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err != nil && logg != nil {
			logg.Warn(ctx, "settlement run finished with vendor errors")
		}

		responses.WriteSuccess(w, settlementRunResponse{
			Processed: summary.Processed,
			Failed:    summary.Failed,
			Skipped:   summary.Skipped,
			Demoted:   summary.Demoted,
		})
	}
}

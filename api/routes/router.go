package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nmviana/vendimia-backend/api/controllers"
	"github.com/nmviana/vendimia-backend/api/middleware"
	"github.com/nmviana/vendimia-backend/pkg/config"
	"github.com/nmviana/vendimia-backend/pkg/db"
	"github.com/nmviana/vendimia-backend/pkg/enums"
	"github.com/nmviana/vendimia-backend/pkg/logger"
	"github.com/nmviana/vendimia-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	idempotencyStore redis.IdempotencyStore,
	balanceService controllers.BalanceService,
	payoutLister controllers.PayoutLister,
	policyService controllers.PolicyService,
	payoutReleaser controllers.PayoutReleaser,
	settlementRunner controllers.SettlementRunner,
	commissionRecorder controllers.CommissionRecorder,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/vendors/{vendorId}", func(r chi.Router) {
			r.Get("/balance", controllers.VendorBalance(balanceService, logg))
			r.Get("/payouts", controllers.VendorPayouts(payoutLister, logg))
			r.Get("/payout-policy", controllers.PayoutPolicyFetch(policyService, logg))
			r.Put("/payout-policy", controllers.PayoutPolicyUpsert(policyService, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))
			r.Post("/settlement/run", controllers.AdminSettlementRun(settlementRunner, logg))
			r.Post("/payouts/{payoutId}/retry", controllers.AdminRetryPayout(payoutReleaser, logg))
		})

		r.Route("/internal", func(r chi.Router) {
			r.Use(middleware.RequireAnyRole(logg, string(enums.ActorRoleSystem), string(enums.ActorRoleAdmin)))
			r.Post("/commission-entries", controllers.InternalRecordCommission(commissionRecorder, logg))
		})
	})

	return r
}

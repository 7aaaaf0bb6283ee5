package main

import (
	"context"
	"net/http"
	"os"

	"github.com/nmviana/vendimia-backend/api/routes"
	"github.com/nmviana/vendimia-backend/internal/commission"
	"github.com/nmviana/vendimia-backend/internal/gateway"
	"github.com/nmviana/vendimia-backend/internal/payouts"
	"github.com/nmviana/vendimia-backend/internal/settlement"
	"github.com/nmviana/vendimia-backend/pkg/config"
	"github.com/nmviana/vendimia-backend/pkg/db"
	"github.com/nmviana/vendimia-backend/pkg/logger"
	"github.com/nmviana/vendimia-backend/pkg/metrics"
	"github.com/nmviana/vendimia-backend/pkg/migrate"
	"github.com/nmviana/vendimia-backend/pkg/outbox"
	"github.com/nmviana/vendimia-backend/pkg/redis"
	pkgstripe "github.com/nmviana/vendimia-backend/pkg/stripe"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	commissionRepo := commission.NewRepository(dbClient.DB())
	payoutRepo := payouts.NewRepository(dbClient.DB())
	policyRepo := payouts.NewPolicyRepository(dbClient.DB())

	resolver, err := commission.NewResolver(commissionRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create rate resolver", err)
		os.Exit(1)
	}
	ledger, err := commission.NewLedger(commission.LedgerParams{
		TX:       dbClient,
		Repo:     commissionRepo,
		Resolver: resolver,
		Outbox:   outboxService,
		Logger:   logg,
		Metrics:  settlementMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create commission ledger", err)
		os.Exit(1)
	}

	policyService, err := payouts.NewPolicyService(payouts.PolicyServiceParams{
		Repo:   policyRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create policy service", err)
		os.Exit(1)
	}

	balanceService, err := payouts.NewBalanceService(payouts.BalanceServiceParams{
		Repo:    payoutRepo,
		Entries: commissionRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create balance service", err)
		os.Exit(1)
	}

	batcher, err := payouts.NewBatcher(payouts.BatcherParams{
		TX:      dbClient,
		Repo:    payoutRepo,
		Policy:  policyRepo,
		Entries: commissionRepo,
		Outbox:  outboxService,
		Logger:  logg,
		Metrics: settlementMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout batcher", err)
		os.Exit(1)
	}

	transferGateway, err := gateway.NewStripeGateway(gateway.NewStripeTransferClient(stripeClient))
	if err != nil {
		logg.Error(context.Background(), "failed to create transfer gateway", err)
		os.Exit(1)
	}

	processor, err := payouts.NewProcessor(payouts.ProcessorParams{
		TX:              dbClient,
		Repo:            payoutRepo,
		Gateway:         transferGateway,
		Outbox:          outboxService,
		Logger:          logg,
		Metrics:         settlementMetrics,
		MaxAttempts:     cfg.Settlement.MaxAttempts,
		TransferTimeout: cfg.Settlement.TransferTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payout processor", err)
		os.Exit(1)
	}

	scheduler, err := settlement.NewScheduler(settlement.SchedulerParams{
		Policies:       policyRepo,
		Batcher:        batcher,
		Processor:      processor,
		Locks:          settlement.NewVendorLocks(),
		Logger:         logg,
		Concurrency:    cfg.Settlement.VendorConcurrency,
		StuckThreshold: cfg.Settlement.StuckThreshold,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement scheduler", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			redisClient,
			balanceService,
			payoutRepo,
			policyService,
			processor,
			scheduler,
			ledger,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

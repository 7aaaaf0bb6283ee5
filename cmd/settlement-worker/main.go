package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nmviana/vendimia-backend/internal/commission"
	"github.com/nmviana/vendimia-backend/internal/cron"
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
)

const lockScopeFormat = "settlement-worker:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "settlement-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "settlement-worker"

	logg = logger.New(logger.Options{
		ServiceName: "settlement-worker",
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
	cronMetrics := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	outboxRepo := outbox.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outboxRepo, logg)

	commissionRepo := commission.NewRepository(dbClient.DB())
	payoutRepo := payouts.NewRepository(dbClient.DB())
	policyRepo := payouts.NewPolicyRepository(dbClient.DB())

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

	runJob, err := settlement.NewRunJob(scheduler)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockScope(cfg.App.Env)), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(runJob, retentionJob),
		Lock:     lock,
		Metrics:  cronMetrics,
		Interval: cfg.Settlement.RunInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting settlement worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "settlement worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "settlement worker shutting down gracefully")
}

func lockScope(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockScopeFormat, env)
}

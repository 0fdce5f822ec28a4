package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nuptio/nuptio-backend/internal/activity"
	"github.com/nuptio/nuptio-backend/internal/commission"
	"github.com/nuptio/nuptio-backend/internal/contributions"
	"github.com/nuptio/nuptio-backend/internal/cron"
	"github.com/nuptio/nuptio-backend/internal/recon"
	"github.com/nuptio/nuptio-backend/internal/registry"
	"github.com/nuptio/nuptio-backend/internal/weddings"
	"github.com/nuptio/nuptio-backend/pkg/config"
	"github.com/nuptio/nuptio-backend/pkg/db"
	"github.com/nuptio/nuptio-backend/pkg/logger"
	"github.com/nuptio/nuptio-backend/pkg/metrics"
	"github.com/nuptio/nuptio-backend/pkg/migrate"
	"github.com/nuptio/nuptio-backend/pkg/redis"
	"github.com/nuptio/nuptio-backend/pkg/stripe"
)

const lockKeyFormat = "np:recon-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "recon-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "recon-worker"

	logg = logger.New(logger.Options{
		ServiceName: "recon-worker",
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	gateway, err := contributions.NewStripeGateway(stripeClient, cfg.Gift)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment gateway", err)
		os.Exit(1)
	}

	contributionRepo := contributions.NewRepository(dbClient.DB())
	weddingRepo := weddings.NewRepository(dbClient.DB())

	commissionService, err := commission.NewService(commission.NewRepository(dbClient.DB()), weddingRepo, cfg.Gift.DefaultCommissionCents)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission service", err)
		os.Exit(1)
	}
	registryService, err := registry.NewService(registry.NewRepository(dbClient.DB()), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create registry service", err)
		os.Exit(1)
	}
	activityService, err := activity.NewService(activity.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create activity service", err)
		os.Exit(1)
	}

	partialRecovery, err := recon.NewPartialRecovery(recon.PartialRecoveryParams{
		Logger:             logg,
		Repo:               contributionRepo,
		WeddingRepo:        weddingRepo,
		Gateway:            gateway,
		Commissions:        commissionService,
		Registry:           registryService,
		Activities:         activityService,
		ProcessingFeeCents: cfg.Gift.ProcessingFeeCents,
		Wait:               cfg.Recon.PartialWait,
		Limit:              cfg.Recon.BatchLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create partial recovery phase", err)
		os.Exit(1)
	}
	balanceSweep, err := recon.NewBalanceSweep(recon.BalanceSweepParams{
		Logger:             logg,
		Repo:               contributionRepo,
		WeddingRepo:        weddingRepo,
		Gateway:            gateway,
		Commissions:        commissionService,
		Registry:           registryService,
		Activities:         activityService,
		ProcessingFeeCents: cfg.Gift.ProcessingFeeCents,
		NoiseFloorCents:    cfg.Recon.SweepNoiseFloorCents,
		Lookback:           cfg.Recon.SweepLookback,
		Limit:              cfg.Recon.BatchLimit,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create balance sweep phase", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewReconJobMetrics(prometheus.DefaultRegisterer)

	recoveryJob, err := cron.NewPartialRecoveryJob(partialRecovery, metricsCollector)
	if err != nil {
		logg.Error(context.Background(), "failed to create recovery job", err)
		os.Exit(1)
	}
	sweepJob, err := cron.NewBalanceSweepJob(balanceSweep, metricsCollector)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(recoveryJob, sweepJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Recon.Interval,
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
	logg.Info(ctx, "starting reconciliation worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reconciliation worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "reconciliation worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

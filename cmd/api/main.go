package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nuptio/nuptio-backend/api/routes"
	"github.com/nuptio/nuptio-backend/internal/activity"
	"github.com/nuptio/nuptio-backend/internal/commission"
	"github.com/nuptio/nuptio-backend/internal/contributions"
	"github.com/nuptio/nuptio-backend/internal/recon"
	"github.com/nuptio/nuptio-backend/internal/registry"
	"github.com/nuptio/nuptio-backend/internal/weddings"
	"github.com/nuptio/nuptio-backend/pkg/config"
	"github.com/nuptio/nuptio-backend/pkg/db"
	"github.com/nuptio/nuptio-backend/pkg/logger"
	"github.com/nuptio/nuptio-backend/pkg/migrate"
	"github.com/nuptio/nuptio-backend/pkg/redis"
	"github.com/nuptio/nuptio-backend/pkg/stripe"
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
	registryRepo := registry.NewRepository(dbClient.DB())

	commissionService, err := commission.NewService(commission.NewRepository(dbClient.DB()), weddingRepo, cfg.Gift.DefaultCommissionCents)
	if err != nil {
		logg.Error(context.Background(), "failed to create commission service", err)
		os.Exit(1)
	}
	registryService, err := registry.NewService(registryRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create registry service", err)
		os.Exit(1)
	}
	activityService, err := activity.NewService(activity.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create activity service", err)
		os.Exit(1)
	}

	contributionService, err := contributions.NewService(
		contributionRepo,
		weddingRepo,
		registryRepo,
		commissionService,
		activityService,
		gateway,
		cfg.Gift,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create contribution service", err)
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
	reconEngine, err := recon.NewEngine(logg, partialRecovery, balanceSweep)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconciliation engine", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()

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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Contributions: contributionService,
			Recon:         reconEngine,
			Metrics:       promRegistry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/vendorledger/api/routes"
	"github.com/angelmondragon/vendorledger/internal/commission"
	"github.com/angelmondragon/vendorledger/internal/ledger"
	"github.com/angelmondragon/vendorledger/internal/payouts"
	"github.com/angelmondragon/vendorledger/internal/vendororders"
	"github.com/angelmondragon/vendorledger/internal/vendors"
	"github.com/angelmondragon/vendorledger/pkg/config"
	"github.com/angelmondragon/vendorledger/pkg/db"
	"github.com/angelmondragon/vendorledger/pkg/logger"
	"github.com/angelmondragon/vendorledger/pkg/metrics"
	"github.com/angelmondragon/vendorledger/pkg/migrate"
	"github.com/angelmondragon/vendorledger/pkg/outbox"
	"github.com/angelmondragon/vendorledger/pkg/redis"
)

const (
	serviceName     = "vendorledger-api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
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

	services, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
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

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (routes.Services, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	settlementMetrics := metrics.NewSettlementMetrics(prometheus.DefaultRegisterer)

	commissionSvc, err := commission.NewService(commission.NewRepository(conn), dbClient, emitter, cfg.Commission.MaxPercent)
	if err != nil {
		return routes.Services{}, err
	}

	vendorsRepo := vendors.NewRepository(conn)
	vendorsSvc, err := vendors.NewService(vendorsRepo, dbClient, cfg.Commission.MaxPercent)
	if err != nil {
		return routes.Services{}, err
	}

	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), logg)
	if err != nil {
		return routes.Services{}, err
	}

	vendorOrdersSvc, err := vendororders.NewService(vendororders.ServiceParams{
		Repo:       vendororders.NewRepository(conn),
		Vendors:    vendorsRepo,
		Commission: commissionSvc,
		Ledger:     ledgerSvc,
		Tx:         dbClient,
		Outbox:     emitter,
		Metrics:    settlementMetrics,
		Logger:     logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	payoutsSvc, err := payouts.NewService(payouts.ServiceParams{
		Repo:         payouts.NewRepository(conn),
		Vendors:      vendorsSvc,
		Ledger:       ledgerSvc,
		Tx:           dbClient,
		Outbox:       emitter,
		MinAmount:    cfg.Payouts.MinAmount,
		MaxBulkBatch: cfg.Payouts.MaxBulkBatch,
		Metrics:      settlementMetrics,
		Logger:       logg,
	})
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Commission:   commissionSvc,
		Vendors:      vendorsSvc,
		Ledger:       ledgerSvc,
		VendorOrders: vendorOrdersSvc,
		Payouts:      payoutsSvc,
	}, nil
}

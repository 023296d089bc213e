package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/medicalcare-backend/api/controllers"
	"github.com/angelmondragon/medicalcare-backend/api/routes"
	"github.com/angelmondragon/medicalcare-backend/internal/applications"
	"github.com/angelmondragon/medicalcare-backend/internal/institutions"
	"github.com/angelmondragon/medicalcare-backend/pkg/config"
	"github.com/angelmondragon/medicalcare-backend/pkg/db"
	"github.com/angelmondragon/medicalcare-backend/pkg/logger"
	"github.com/angelmondragon/medicalcare-backend/pkg/metrics"
	"github.com/angelmondragon/medicalcare-backend/pkg/migrate"
	"github.com/angelmondragon/medicalcare-backend/pkg/redis"
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
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var (
		redisPinger      controllers.Pinger
		idempotencyStore redis.IdempotencyStore
	)
	if cfg.Redis.Enabled() {
		var redisClient *redis.Client
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
		redisPinger = redisClient
		idempotencyStore = redisClient
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	institutionRepo := institutions.NewRepository(dbClient.DB())
	institutionService, err := institutions.NewService(institutionRepo, dbClient, logg)
	if err != nil {
		return err
	}
	applicationService, err := applications.NewService(
		applications.NewRepository(dbClient.DB()),
		dbClient,
		cfg.Workflow,
		metrics.NewWorkflowMetrics(registry),
		logg,
	)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"addr":        addr,
		"redis":       cfg.Redis.Enabled(),
		"idempotency": cfg.FeatureFlags.Idempotency,
	})

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		Handler: routes.NewRouter(
			cfg,
			logg,
			registry,
			metrics.NewHTTPMetrics(registry),
			dbClient,
			redisPinger,
			idempotencyStore,
			applicationService,
			institutionService,
		),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

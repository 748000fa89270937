package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docstore/docs"
	"docstore/internal/cache"
	"docstore/internal/config"
	"docstore/internal/database"
	"docstore/internal/database/migration"
	handlers "docstore/internal/http/handler"
	"docstore/internal/http/middleware"
	"docstore/internal/logging"
	"docstore/internal/metrics"
	"docstore/internal/nodeclient"
	"docstore/internal/otel"
	"docstore/internal/repository/postgres"
	"docstore/internal/service"
	"docstore/internal/storage"
)

// @title Document Store API
// @version 1.0
// @BasePath /
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := logging.New(cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server_exit", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	shutdownTracing, err := otel.Init(ctx, cfg.Tracing, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	db, err := database.NewPostgres(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger); err != nil {
		return err
	}

	keyRepo := postgres.NewKeyEntityPostgres(db)
	hosts, err := keyRepo.ServerHosts(ctx)
	if err != nil {
		return err
	}
	localHost, err := service.ResolveLocalHost(hosts, cfg.Storage.HostName)
	if err != nil {
		return err
	}
	logger.Info("local_host_resolved", "server_host_id", localHost.ID, "host_name", cfg.Storage.HostName)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return err
	}

	keyCache := cache.New(keyRepo, clock.WallClock, cache.Config{
		TTL:            cfg.Cache.TTL(),
		Retry:          cfg.Cache.Retry(),
		RefreshTimeout: cfg.Cache.RefreshTimeout(),
		ForceTimeout:   cfg.Cache.ForceTimeout(),
	}, logger, m)
	if err := keyCache.ForceRefresh(ctx); err != nil {
		return err
	}

	maxUpload, err := cfg.Storage.MaxUploadBytes()
	if err != nil {
		return err
	}

	engine := service.NewStorageEngine(service.EngineDeps{
		Cache:       keyCache,
		Documents:   postgres.NewDocumentPostgres(db),
		Expirations: postgres.NewExpiringDocumentPostgres(db),
		Replication: postgres.NewReplicationTaskPostgres(db),
		FS:          storage.NewOS(),
		Peers: nodeclient.New(nodeclient.Config{
			NodeKey:         cfg.Node.Key,
			AliveTimeout:    time.Duration(cfg.Node.AliveTimeoutSec) * time.Second,
			TransferTimeout: time.Duration(cfg.Node.TransferTimeoutSec) * time.Second,
		}, logger),
		LocalHost:      localHost,
		Clock:          clock.WallClock,
		Logger:         logger,
		Metrics:        m,
		MaxUploadBytes: maxUpload,
	})
	admin := service.NewKeyEntityService(keyRepo, keyCache, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// multipart framing on top of the largest accepted file
		BodyLimit: int(maxUpload) + 1<<20,
	})

	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(middleware.Logger(logger))
	app.Use(httpMetrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:      db,
		Engine:  engine,
		Admin:   admin,
		NodeKey: cfg.Node.Key,
		Logger:  logger,
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_start", "addr", ":"+cfg.Port, "server_host_id", localHost.ID)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"                    // Echo web framework
	"github.com/prometheus/client_golang/prometheus" // metrics registry
	"go.uber.org/zap"                                // structured logging

	"github.com/iliyamo/prisoner-profile-details/internal/cache"
	"github.com/iliyamo/prisoner-profile-details/internal/config"
	"github.com/iliyamo/prisoner-profile-details/internal/database"
	"github.com/iliyamo/prisoner-profile-details/internal/handler"
	"github.com/iliyamo/prisoner-profile-details/internal/metrics"
	"github.com/iliyamo/prisoner-profile-details/internal/middleware"
	"github.com/iliyamo/prisoner-profile-details/internal/queue"
	"github.com/iliyamo/prisoner-profile-details/internal/repository"
	"github.com/iliyamo/prisoner-profile-details/internal/router"
	"github.com/iliyamo/prisoner-profile-details/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal("open database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer db.Close()
	// The legacy MySQL schema is owned elsewhere; only a local sqlite file is bootstrapped here.
	if cfg.DBDriver == "sqlite" {
		if err := database.ApplySchema(context.Background(), db); err != nil {
			logger.Fatal("apply schema", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	catalogue := cache.NewCatalogue(repository.NewProfileTypeRepo(db), rdb, cfg.CatalogueTTL, logger)

	var publisher service.EventPublisher
	if cfg.EventsEnabled {
		publisher = queue.NewPublisher(cfg.RabbitURL, logger)
	}

	svc := service.NewProfileDetailsService(
		repository.NewOffenderRepo(db),
		repository.NewProfileDetailRepo(db),
		catalogue,
		publisher,
		m,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AuditConsumer {
		consumer := queue.NewAuditConsumer(cfg.RabbitURL, cfg.AuditLogPath, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("audit consumer stopped", zap.Error(err))
			}
		}()
	}

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(logger))
	router.RegisterRoutes(e, router.Deps{
		Health:      &handler.HealthHandler{DB: db},
		Profiles:    handler.NewProfileDetailsHandler(svc, cfg.RequestTimeout, logger),
		Reference:   &handler.ReferenceHandler{Catalogue: svc, Logger: logger},
		Gatherer:    reg,
		JWTSecret:   cfg.JWTSecret,
		ProfileRole: cfg.ProfileRole,
		RateLimit:   config.LoadRateLimitConfig(),
		Cache:       config.LoadCacheConfig(),
		Redis:       rdb,
		Logger:      logger,
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

// newLogger builds a production JSON logger at the given level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}

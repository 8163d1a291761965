package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/thalesmenz/leelo-app-sub001/cmd/mainconfig"
	"github.com/thalesmenz/leelo-app-sub001/internal/api/router"
	"github.com/thalesmenz/leelo-app-sub001/internal/booking"
	appconfig "github.com/thalesmenz/leelo-app-sub001/internal/config"
	httpmiddleware "github.com/thalesmenz/leelo-app-sub001/internal/http/middleware"
	"github.com/thalesmenz/leelo-app-sub001/internal/masks"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting booking API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"backend_mode", cfg.BackendMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, bookingMetrics := setupMetrics()

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}
	rdb := connectRedis(ctx, cfg, logger)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	auditDB := openAuditDB(ctx, cfg.AuditDatabaseURL, logger)
	if auditDB != nil {
		defer func() { _ = auditDB.Close() }()
	}

	var awsCfg *aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = &loaded
	}

	currency, err := masks.NewCurrencyFormatter(cfg.CurrencyLocale, cfg.CurrencySymbol)
	if err != nil {
		logger.Warn("invalid currency settings, using default", "error", err)
		currency = masks.DefaultCurrency()
	}

	deps := buildCollaborators(cfg, pool, rdb, logger)
	pipeline := booking.NewSubmissionPipeline(deps.writer, logger,
		booking.WithSubmitGuard(deps.guard),
		booking.WithSubmitTimeout(cfg.SubmitTimeout),
		booking.WithPipelineMetrics(bookingMetrics),
		booking.WithNotifiers(buildNotifiers(cfg, awsCfg, auditDB, logger)...),
	)
	sessions := booking.NewSessions(booking.SessionsConfig{
		Directory:        deps.directory,
		Catalog:          deps.catalog,
		Availability:     deps.availability,
		Pipeline:         pipeline,
		TTL:              cfg.BookingSessionTTL,
		SlotFetchTimeout: cfg.SlotFetchTimeout,
		Location:         cfg.Location(),
		Metrics:          bookingMetrics,
		Logger:           logger,
	})
	go sessions.Run(ctx, cfg.SessionSweepInterval)

	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	go limiter.Run(ctx, 5*time.Minute)

	r := router.New(&router.Config{
		Logger:             logger,
		BookingHandler:     booking.NewHandler(sessions, currency, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        limiter,
		HealthChecks:       healthChecks(pool, rdb, auditDB),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

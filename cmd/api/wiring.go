package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/thalesmenz/leelo-app-sub001/internal/api/router"
	"github.com/thalesmenz/leelo-app-sub001/internal/appointments"
	"github.com/thalesmenz/leelo-app-sub001/internal/audit"
	"github.com/thalesmenz/leelo-app-sub001/internal/backend"
	"github.com/thalesmenz/leelo-app-sub001/internal/booking"
	"github.com/thalesmenz/leelo-app-sub001/internal/cache"
	appconfig "github.com/thalesmenz/leelo-app-sub001/internal/config"
	"github.com/thalesmenz/leelo-app-sub001/internal/events"
	"github.com/thalesmenz/leelo-app-sub001/internal/notify"
	"github.com/thalesmenz/leelo-app-sub001/internal/observability/metrics"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

// setupMetrics registers the booking collectors on a private registry.
func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewBookingMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

// connectPostgresPool returns nil when url is empty or unreachable.
func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to reach postgres", "error", err)
		pool.Close()
		return nil
	}
	return pool
}

// connectRedis returns nil when no address is configured or the server does
// not answer. Callers fall back to in-process equivalents.
func connectRedis(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *redis.Client {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-process catalog and submit guard", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// openAuditDB returns nil when auditing is not configured.
func openAuditDB(ctx context.Context, url string, logger *logging.Logger) *sql.DB {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	db, err := sql.Open("pgx", url)
	if err != nil {
		logger.Error("failed to open audit database", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to reach audit database", "error", err)
		_ = db.Close()
		return nil
	}
	return db
}

// collaborators are the booking adapter implementations picked for this
// deployment.
type collaborators struct {
	directory    booking.ProfessionalDirectory
	catalog      booking.ServiceCatalog
	availability booking.AvailabilityService
	writer       booking.AppointmentWriter
	guard        booking.SubmitGuard
}

// buildCollaborators wires the scheduling API, and in postgres mode the
// local store, behind the optional Redis cache. Availability always comes
// from the scheduling API.
func buildCollaborators(cfg *appconfig.Config, pool *pgxpool.Pool, rdb *redis.Client, logger *logging.Logger) collaborators {
	api := backend.NewClient(cfg.BackendBaseURL, logger,
		backend.WithAPIKey(cfg.BackendAPIKey),
		backend.WithTimeout(cfg.BackendTimeout),
	)
	c := collaborators{
		directory:    api,
		catalog:      api,
		availability: api,
		writer:       api,
		guard:        booking.NewLocalSubmitGuard(),
	}

	if cfg.BackendMode == "postgres" {
		if pool == nil {
			logger.Warn("postgres backend mode without a database, using the scheduling API")
		} else {
			store := appointments.NewStore(pool)
			c.directory = store
			c.catalog = store
			c.writer = store
		}
	}

	if rdb != nil {
		cached := cache.NewCatalog(rdb, c.directory, c.catalog, cfg.CatalogCacheTTL, logger)
		c.directory = cached
		c.catalog = cached
		c.guard = booking.NewRedisSubmitGuard(rdb, cfg.SubmitLockTTL)
	}
	return c
}

// buildNotifiers returns the terminal-outcome observers: e-mail always, SQS
// events when a queue is configured and the audit trail when a database is.
func buildNotifiers(cfg *appconfig.Config, awsCfg *aws.Config, auditDB *sql.DB, logger *logging.Logger) []booking.Notifier {
	senderCfg := notify.SenderConfig{
		Provider: cfg.EmailProvider,
		FromName: cfg.ConfirmationFromName,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.ConfirmationFromName,
		},
		SESFrom: cfg.SESFromEmail,
	}
	if awsCfg != nil && cfg.EmailProvider == "ses" {
		senderCfg.SESClient = sesv2.NewFromConfig(*awsCfg)
	}
	notifiers := []booking.Notifier{
		notify.NewConfirmationNotifier(notify.NewEmailSender(senderCfg, logger), notify.ConfirmationConfig{
			Subject:  cfg.ConfirmationSubject,
			OpsEmail: cfg.OpsAlertEmail,
			Location: cfg.Location(),
		}, logger),
	}

	if awsCfg != nil && strings.TrimSpace(cfg.BookingEventsQueueURL) != "" {
		publisher := events.NewSQSPublisher(sqs.NewFromConfig(*awsCfg), cfg.BookingEventsQueueURL, logger)
		notifiers = append(notifiers, events.NewBookingPublisher(publisher))
	}
	if auditDB != nil {
		notifiers = append(notifiers, audit.NewService(auditDB))
	}
	return notifiers
}

// healthChecks pings every optional dependency that was connected.
func healthChecks(pool *pgxpool.Pool, rdb *redis.Client, auditDB *sql.DB) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if auditDB != nil {
		checks["audit_db"] = auditDB.PingContext
	}
	return checks
}

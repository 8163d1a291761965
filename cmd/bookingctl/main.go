// Command bookingctl runs operator tasks against a booking deployment:
//
//	bookingctl audit <professionalID> [-type=T] [-since=24h] [-limit=N]
//	bookingctl invalidate <professionalID>...
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/thalesmenz/leelo-app-sub001/internal/audit"
	"github.com/thalesmenz/leelo-app-sub001/internal/backend"
	"github.com/thalesmenz/leelo-app-sub001/internal/cache"
	appconfig "github.com/thalesmenz/leelo-app-sub001/internal/config"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

type auditQuerier interface {
	QueryEvents(ctx context.Context, filter audit.Filter) ([]audit.Event, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, professionalID string) error
}

var errUsage = errors.New("usage: bookingctl audit <professionalID> [flags] | invalidate <professionalID>...")

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		querier     auditQuerier
		invalidator cacheInvalidator
	)
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "audit":
		if strings.TrimSpace(cfg.AuditDatabaseURL) == "" {
			logger.Error("AUDIT_DATABASE_URL is required")
			os.Exit(1)
		}
		db, err := sql.Open("pgx", cfg.AuditDatabaseURL)
		if err != nil {
			logger.Error("failed to open audit database", "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		querier = audit.NewService(db)
	case "invalidate":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			logger.Error("REDIS_ADDR is required")
			os.Exit(1)
		}
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer func() { _ = rdb.Close() }()
		api := backend.NewClient(cfg.BackendBaseURL, logger, backend.WithAPIKey(cfg.BackendAPIKey))
		invalidator = cache.NewCatalog(rdb, api, api, cfg.CatalogCacheTTL, logger)
	}

	if err := run(ctx, os.Args[1:], querier, invalidator, os.Stdout); err != nil {
		logger.Error("bookingctl failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, querier auditQuerier, invalidator cacheInvalidator, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "audit":
		return runAudit(ctx, args[1:], querier, out)
	case "invalidate":
		return runInvalidate(ctx, args[1:], invalidator, out)
	default:
		return errUsage
	}
}

func runAudit(ctx context.Context, args []string, querier auditQuerier, out io.Writer) error {
	if querier == nil {
		return errors.New("audit store not configured")
	}
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return errUsage
	}
	professionalID := args[0]

	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	eventType := fs.String("type", "", "event type filter")
	since := fs.Duration("since", 0, "only events newer than this")
	limit := fs.Int("limit", 100, "maximum events")
	if err := fs.Parse(args[1:]); err != nil {
		return fmt.Errorf("audit flags: %w", err)
	}

	filter := audit.Filter{
		ProfessionalID: professionalID,
		EventType:      audit.EventType(*eventType),
		Limit:          *limit,
	}
	if *since > 0 {
		filter.StartTime = time.Now().Add(-*since)
	}
	events, err := querier.QueryEvents(ctx, filter)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

func runInvalidate(ctx context.Context, args []string, invalidator cacheInvalidator, out io.Writer) error {
	if invalidator == nil {
		return errors.New("catalog cache not configured")
	}
	if len(args) == 0 {
		return errUsage
	}
	for _, id := range args {
		if err := invalidator.Invalidate(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "invalidated %s\n", id)
	}
	return nil
}

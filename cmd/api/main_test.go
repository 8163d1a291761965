package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/require"

	"github.com/thalesmenz/leelo-app-sub001/internal/backend"
	"github.com/thalesmenz/leelo-app-sub001/internal/booking"
	"github.com/thalesmenz/leelo-app-sub001/internal/cache"
	appconfig "github.com/thalesmenz/leelo-app-sub001/internal/config"
	"github.com/thalesmenz/leelo-app-sub001/internal/events"
	"github.com/thalesmenz/leelo-app-sub001/internal/notify"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

func TestSetupMetricsExposesBookingCollectors(t *testing.T) {
	handler, m := setupMetrics()
	require.NotNil(t, handler)
	require.NotNil(t, m)

	m.ObserveTransition("choose_date", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "clinic_booking_transitions_total")
	require.Contains(t, rr.Body.String(), "go_goroutines")
}

func TestOptionalConnectionsSkipEmptyURLs(t *testing.T) {
	logger := logging.New("error")
	ctx := context.Background()

	require.Nil(t, connectPostgresPool(ctx, "", logger))
	require.Nil(t, openAuditDB(ctx, "  ", logger))
	require.Nil(t, connectRedis(ctx, &appconfig.Config{}, logger))
	require.Empty(t, healthChecks(nil, nil, nil))
}

func TestBuildCollaboratorsAPIMode(t *testing.T) {
	cfg := &appconfig.Config{BackendMode: "api", BackendBaseURL: "http://localhost:3000/api"}
	deps := buildCollaborators(cfg, nil, nil, logging.New("error"))

	require.IsType(t, &backend.Client{}, deps.directory)
	require.IsType(t, &backend.Client{}, deps.catalog)
	require.IsType(t, &backend.Client{}, deps.availability)
	require.IsType(t, &backend.Client{}, deps.writer)
	require.IsType(t, &booking.LocalSubmitGuard{}, deps.guard)
}

func TestBuildCollaboratorsPostgresModeWithoutPoolFallsBack(t *testing.T) {
	cfg := &appconfig.Config{BackendMode: "postgres", BackendBaseURL: "http://localhost:3000/api"}
	deps := buildCollaborators(cfg, nil, nil, logging.New("error"))

	require.IsType(t, &backend.Client{}, deps.writer)
}

func TestBuildCollaboratorsWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	logger := logging.New("error")
	cfg := &appconfig.Config{BackendMode: "api", BackendBaseURL: "http://localhost:3000/api", RedisAddr: mr.Addr()}

	rdb := connectRedis(context.Background(), cfg, logger)
	require.NotNil(t, rdb)
	t.Cleanup(func() { _ = rdb.Close() })

	deps := buildCollaborators(cfg, nil, rdb, logger)
	require.IsType(t, &cache.Catalog{}, deps.directory)
	require.IsType(t, &cache.Catalog{}, deps.catalog)
	require.IsType(t, &backend.Client{}, deps.availability)
	require.IsType(t, &booking.RedisSubmitGuard{}, deps.guard)

	checks := healthChecks(nil, rdb, nil)
	require.Contains(t, checks, "redis")
	require.NoError(t, checks["redis"](context.Background()))
}

func TestBuildNotifiers(t *testing.T) {
	logger := logging.New("error")

	t.Run("email only", func(t *testing.T) {
		cfg := &appconfig.Config{EmailProvider: "stub"}
		notifiers := buildNotifiers(cfg, nil, nil, logger)
		require.Len(t, notifiers, 1)
		require.IsType(t, &notify.ConfirmationNotifier{}, notifiers[0])
	})

	t.Run("queue without aws config is skipped", func(t *testing.T) {
		cfg := &appconfig.Config{EmailProvider: "stub", BookingEventsQueueURL: "http://localhost:4566/000000000000/booking"}
		require.Len(t, buildNotifiers(cfg, nil, nil, logger), 1)
	})

	t.Run("events publisher", func(t *testing.T) {
		cfg := &appconfig.Config{EmailProvider: "ses", BookingEventsQueueURL: "http://localhost:4566/000000000000/booking"}
		awsCfg := aws.Config{Region: "us-east-1"}
		notifiers := buildNotifiers(cfg, &awsCfg, nil, logger)
		require.Len(t, notifiers, 2)
		require.IsType(t, &events.BookingPublisher{}, notifiers[1])
	})
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesmenz/leelo-app-sub001/internal/audit"
	"github.com/thalesmenz/leelo-app-sub001/internal/booking"
	"github.com/thalesmenz/leelo-app-sub001/internal/cache"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

type stubBackend struct{}

func (stubBackend) GetByID(_ context.Context, id string) (*booking.Professional, error) {
	return &booking.Professional{ID: id, Name: "Dr. Ana"}, nil
}

func (stubBackend) GetByProfessional(context.Context, string) ([]booking.Service, error) {
	return []booking.Service{{ID: "svc-1", Name: "Consulta", Active: true}}, nil
}

func TestRunAuditPrintsEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "event_type", "professional_id", "session_id", "appointment_id",
		"service_id", "slot_start", "patient_phone", "patient_fields", "reason", "created_at",
	}).AddRow("evt-1", "booking.submission_failed", "prof-1", "sess-1", nil,
		"svc-1", "2025-06-12T09:00:00", "*********88", []byte("{name,phone}"), "timeout", created)
	mock.ExpectQuery("FROM booking_audit_events").
		WithArgs("prof-1", "booking.submission_failed").
		WillReturnRows(rows)

	var out bytes.Buffer
	err = run(context.Background(),
		[]string{"audit", "prof-1", "-type=booking.submission_failed", "-limit=5"},
		audit.NewService(db), nil, &out)
	require.NoError(t, err)

	var got audit.Event
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "evt-1", got.ID)
	assert.Equal(t, "timeout", got.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInvalidateDropsCachedCatalog(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	catalog := cache.NewCatalog(client, stubBackend{}, stubBackend{}, time.Minute, logging.New("error"))
	ctx := context.Background()
	_, err := catalog.GetByID(ctx, "prof-1")
	require.NoError(t, err)
	_, err = catalog.GetByProfessional(ctx, "prof-1")
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 2)

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"invalidate", "prof-1"}, nil, catalog, &out))
	assert.Empty(t, mr.Keys())
	assert.Equal(t, "invalidated prof-1\n", out.String())
}

func TestRunRejectsBadUsage(t *testing.T) {
	ctx := context.Background()
	var out bytes.Buffer

	assert.ErrorIs(t, run(ctx, nil, nil, nil, &out), errUsage)
	assert.ErrorIs(t, run(ctx, []string{"drop-everything"}, nil, nil, &out), errUsage)
	assert.Error(t, run(ctx, []string{"audit", "prof-1"}, nil, nil, &out))
	assert.Error(t, run(ctx, []string{"invalidate", "prof-1"}, nil, nil, &out))
}

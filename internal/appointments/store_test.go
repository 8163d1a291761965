package appointments

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesmenz/leelo-app-sub001/internal/booking"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newStoreWithDB(mock), mock
}

func TestStore_GetByID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, specialty, bio").
		WithArgs("prof-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "specialty", "bio"}).
			AddRow("prof-1", "Dr. Ana", "Dermatologia", ""))

	prof, err := store.GetByID(context.Background(), "prof-1")
	require.NoError(t, err)
	assert.Equal(t, "Dr. Ana", prof.Name)

	mock.ExpectQuery("SELECT id, name, specialty, bio").
		WithArgs("prof-404").
		WillReturnError(pgx.ErrNoRows)

	_, err = store.GetByID(context.Background(), "prof-404")
	assert.ErrorIs(t, err, booking.ErrProfessionalNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetByProfessional(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM services").
		WithArgs("prof-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "description", "duration_minutes", "price_cents", "active"}).
			AddRow("svc-1", "Consulta", "Primeira consulta", 30, int64(15000), true).
			AddRow("svc-2", "Retorno", "", 20, int64(8050), false))

	services, err := store.GetByProfessional(context.Background(), "prof-1")
	require.NoError(t, err)
	require.Len(t, services, 2)
	assert.Equal(t, 150.0, services[0].Price)
	assert.Equal(t, int64(8050), services[1].PriceCents())
	assert.False(t, services[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetByProfessionalQueryError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("FROM services").WithArgs("prof-1").WillReturnError(errors.New("connection reset"))

	_, err := store.GetByProfessional(context.Background(), "prof-1")
	assert.Error(t, err)
}

func TestStore_Create(t *testing.T) {
	store, mock := newMockStore(t)
	createdAt := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)

	req := booking.BookingRequest{
		ProfessionalID:  "prof-1",
		ServiceID:       "svc-1",
		PatientName:     "Maria Silva",
		PatientPhone:    "11999998888",
		PatientIdentity: "12345678901",
		StartTime:       "2025-06-12T09:00:00",
		EndTime:         "2025-06-12T09:30:00",
		Status:          booking.StatusPending,
	}
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "prof-1", "svc-1", "Maria Silva", "11999998888", "12345678901",
			"2025-06-12T09:00:00", "2025-06-12T09:30:00", "pending").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(createdAt))

	appt, err := store.Create(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, "pending", appt.Status)
	assert.Equal(t, req.StartTime, appt.StartTime)
	assert.Equal(t, createdAt, appt.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateSlotTaken(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	_, err := store.Create(context.Background(), booking.BookingRequest{ProfessionalID: "prof-1"})
	assert.ErrorIs(t, err, ErrSlotTaken)
}

// Package appointments reads professionals and services from Postgres and
// writes pending appointments there directly, for deployments without the
// scheduling API.
package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thalesmenz/leelo-app-sub001/internal/booking"
)

// ErrSlotTaken is returned when another pending or confirmed appointment
// already holds the professional's start time.
var ErrSlotTaken = errors.New("appointments: slot already taken")

const uniqueViolation = "23505"

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements the directory, catalog and writer collaborators.
type Store struct {
	db db
}

var (
	_ booking.ProfessionalDirectory = (*Store)(nil)
	_ booking.ServiceCatalog        = (*Store)(nil)
	_ booking.AppointmentWriter     = (*Store)(nil)
)

// NewStore wraps a pgx pool.
func NewStore(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Store{db: pool}
}

func newStoreWithDB(d db) *Store {
	if d == nil {
		panic("appointments: db required")
	}
	return &Store{db: d}
}

// GetByID loads a professional profile.
func (s *Store) GetByID(ctx context.Context, id string) (*booking.Professional, error) {
	query := `
		SELECT id, name, specialty, bio
		FROM professionals
		WHERE id = $1
	`
	var p booking.Professional
	if err := s.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Specialty, &p.Bio); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", booking.ErrProfessionalNotFound, id)
		}
		return nil, fmt.Errorf("appointments: get professional: %w", err)
	}
	return &p, nil
}

// GetByProfessional lists the professional's services ordered by name.
func (s *Store) GetByProfessional(ctx context.Context, professionalID string) ([]booking.Service, error) {
	query := `
		SELECT id, name, description, duration_minutes, price_cents, active
		FROM services
		WHERE professional_id = $1
		ORDER BY name
	`
	rows, err := s.db.Query(ctx, query, professionalID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list services: %w", err)
	}
	defer rows.Close()

	var out []booking.Service
	for rows.Next() {
		var (
			svc        booking.Service
			priceCents int64
		)
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.DurationMinutes, &priceCents, &svc.Active); err != nil {
			return nil, fmt.Errorf("appointments: scan service: %w", err)
		}
		svc.Price = float64(priceCents) / 100
		out = append(out, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list services: %w", err)
	}
	return out, nil
}

// Create inserts a pending appointment. Slot times are stored as received.
func (s *Store) Create(ctx context.Context, req booking.BookingRequest) (*booking.Appointment, error) {
	status := req.Status
	if status == "" {
		status = booking.StatusPending
	}
	id := uuid.New()
	query := `
		INSERT INTO appointments (id, professional_id, service_id, patient_name, patient_phone, patient_identity, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := s.db.QueryRow(ctx, query,
		id,
		req.ProfessionalID,
		req.ServiceID,
		req.PatientName,
		req.PatientPhone,
		req.PatientIdentity,
		req.StartTime,
		req.EndTime,
		status,
	).Scan(&createdAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: insert failed: %w", err)
	}

	return &booking.Appointment{
		ID:             id.String(),
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		PatientName:    req.PatientName,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Status:         status,
		CreatedAt:      createdAt,
	}, nil
}

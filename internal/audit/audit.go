// Package audit keeps an append-only trail of public booking submissions.
// Phone numbers are stored redacted and identity numbers are never stored.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/thalesmenz/leelo-app-sub001/internal/booking"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

// EventType names an audit record kind.
type EventType string

const (
	// EventAppointmentRequested is logged when a pending appointment is created.
	EventAppointmentRequested EventType = "booking.appointment_requested"
	// EventSubmissionFailed is logged when the creation call fails.
	EventSubmissionFailed EventType = "booking.submission_failed"
)

// Event is one immutable audit record.
type Event struct {
	ID             string    `json:"id"`
	EventType      EventType `json:"event_type"`
	ProfessionalID string    `json:"professional_id"`
	SessionID      string    `json:"session_id,omitempty"`
	AppointmentID  string    `json:"appointment_id,omitempty"`
	ServiceID      string    `json:"service_id,omitempty"`
	SlotStart      string    `json:"slot_start,omitempty"`
	PatientPhone   string    `json:"patient_phone,omitempty"`
	PatientFields  []string  `json:"patient_fields,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Service writes and reads booking audit events.
type Service struct {
	db *sql.DB
}

var _ booking.Notifier = (*Service)(nil)

// NewService creates a new audit service.
func NewService(db *sql.DB) *Service {
	if db == nil {
		panic("audit: db required")
	}
	return &Service{db: db}
}

// LogEvent records an audit event.
func (s *Service) LogEvent(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO booking_audit_events (
			id, event_type, professional_id, session_id, appointment_id,
			service_id, slot_start, patient_phone, patient_fields, reason, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.ProfessionalID,
		nullString(event.SessionID),
		nullString(event.AppointmentID),
		nullString(event.ServiceID),
		nullString(event.SlotStart),
		nullString(event.PatientPhone),
		pq.Array(event.PatientFields),
		nullString(event.Reason),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to log event: %w", err)
	}
	return nil
}

// AppointmentCreated records a successful submission.
func (s *Service) AppointmentCreated(ctx context.Context, appt *booking.Appointment, patient booking.PatientInput) error {
	return s.LogEvent(ctx, Event{
		EventType:      EventAppointmentRequested,
		ProfessionalID: appt.ProfessionalID,
		AppointmentID:  appt.ID,
		ServiceID:      appt.ServiceID,
		SlotStart:      appt.StartTime,
		PatientPhone:   logging.RedactDigits(patient.PhoneDigits),
		PatientFields:  providedFields(patient),
	})
}

// SubmissionFailed records a failed submission.
func (s *Service) SubmissionFailed(ctx context.Context, sessionID string, req booking.BookingRequest, cause error) error {
	return s.LogEvent(ctx, Event{
		EventType:      EventSubmissionFailed,
		ProfessionalID: req.ProfessionalID,
		SessionID:      sessionID,
		ServiceID:      req.ServiceID,
		SlotStart:      req.StartTime,
		PatientPhone:   logging.RedactDigits(req.PatientPhone),
		Reason:         cause.Error(),
	})
}

func providedFields(p booking.PatientInput) []string {
	fields := make([]string, 0, 4)
	if strings.TrimSpace(p.Name) != "" {
		fields = append(fields, booking.FieldName)
	}
	if strings.TrimSpace(p.Email) != "" {
		fields = append(fields, booking.FieldEmail)
	}
	if p.PhoneDigits != "" {
		fields = append(fields, booking.FieldPhone)
	}
	if p.IDDigits != "" {
		fields = append(fields, booking.FieldIdentity)
	}
	return fields
}

// Filter specifies criteria for querying audit events.
type Filter struct {
	ProfessionalID string
	EventType      EventType
	StartTime      time.Time
	EndTime        time.Time
	Limit          int
}

// QueryEvents retrieves a professional's audit events, newest first.
func (s *Service) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, event_type, professional_id, session_id, appointment_id,
			   service_id, slot_start, patient_phone, patient_fields, reason, created_at
		FROM booking_audit_events
		WHERE professional_id = $1
	`
	args := []any{filter.ProfessionalID}
	argIdx := 2

	if filter.EventType != "" {
		query += fmt.Sprintf(" AND event_type = $%d", argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.StartTime.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.StartTime)
		argIdx++
	}
	if !filter.EndTime.IsZero() {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, filter.EndTime)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var sessionID, apptID, serviceID, slotStart, phone, reason sql.NullString
		if err := rows.Scan(
			&e.ID, &e.EventType, &e.ProfessionalID, &sessionID, &apptID,
			&serviceID, &slotStart, &phone, pq.Array(&e.PatientFields), &reason, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("audit: failed to scan event: %w", err)
		}
		e.SessionID = sessionID.String
		e.AppointmentID = apptID.String
		e.ServiceID = serviceID.String
		e.SlotStart = slotStart.String
		e.PatientPhone = phone.String
		e.Reason = reason.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: failed to read events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

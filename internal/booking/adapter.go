// Package booking implements the public self-service booking flow: a five
// step wizard (date, slot, service, patient data, confirmed) backed by the
// clinic's directory, catalog, availability and appointment collaborators.
package booking

import (
	"context"
	"math"
	"time"
)

// Professional is the provider whose public booking page is in use.
type Professional struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// Service is one catalog entry. Only active services are offered.
type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	Active          bool    `json:"active"`
}

// PriceCents returns the price in minor currency units.
func (s Service) PriceCents() int64 {
	return int64(math.Round(s.Price * 100))
}

// TimeSlot is a bookable interval as returned by the availability
// collaborator. Start and End are kept verbatim and forwarded unchanged on
// submission.
type TimeSlot struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

// StartTime parses Start, interpreting offset-less values in loc.
func (s TimeSlot) StartTime(loc *time.Location) (time.Time, error) {
	return parseSlotTime(s.Start, loc)
}

func parseSlotTime(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", v, loc)
}

// PatientInput is what the visitor typed on the data-entry step.
type PatientInput struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneDigits string `json:"phone"`
	IDDigits    string `json:"identity"`
}

// StatusPending is the only status this flow ever creates.
const StatusPending = "pending"

// BookingRequest is the payload handed to the AppointmentWriter. Phone and
// identity carry digits only.
type BookingRequest struct {
	ProfessionalID  string `json:"professional_id"`
	ServiceID       string `json:"service_id"`
	PatientName     string `json:"patient_name"`
	PatientPhone    string `json:"patient_phone"`
	PatientIdentity string `json:"patient_identity"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Status          string `json:"status"`
}

// Appointment is the record created by the AppointmentWriter.
type Appointment struct {
	ID             string    `json:"id"`
	ProfessionalID string    `json:"professional_id"`
	ServiceID      string    `json:"service_id"`
	PatientName    string    `json:"patient_name"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"created_at,omitempty"`
}

// ProfessionalDirectory resolves a professional profile.
type ProfessionalDirectory interface {
	GetByID(ctx context.Context, id string) (*Professional, error)
}

// ServiceCatalog lists a professional's services, active or not.
type ServiceCatalog interface {
	GetByProfessional(ctx context.Context, professionalID string) ([]Service, error)
}

// AvailabilityService returns free slots for a YYYY-MM-DD date. An empty
// result is a valid answer, not an error.
type AvailabilityService interface {
	GetAvailableSlots(ctx context.Context, professionalID, dateISO string) ([]TimeSlot, error)
}

// AppointmentWriter creates pending appointments.
type AppointmentWriter interface {
	Create(ctx context.Context, req BookingRequest) (*Appointment, error)
}

// ActiveServices filters out inactive catalog entries.
func ActiveServices(services []Service) []Service {
	out := make([]Service, 0, len(services))
	for _, s := range services {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

package events

import "time"

// AppointmentRequestedV1 is emitted when a public booking creates a pending
// appointment. Downstream consumers confirm or reject it.
type AppointmentRequestedV1 struct {
	AppointmentID  string    `json:"appointment_id"`
	ProfessionalID string    `json:"professional_id"`
	ServiceID      string    `json:"service_id"`
	PatientName    string    `json:"patient_name"`
	PatientEmail   string    `json:"patient_email,omitempty"`
	PatientPhone   string    `json:"patient_phone"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	Status         string    `json:"status"`
	RequestedAt    time.Time `json:"requested_at"`
}

func (AppointmentRequestedV1) EventType() string { return "booking.appointment.requested.v1" }

func (e AppointmentRequestedV1) Professional() string { return e.ProfessionalID }

// BookingSubmissionFailedV1 is emitted when the creation call fails.
type BookingSubmissionFailedV1 struct {
	SessionID      string    `json:"session_id"`
	ProfessionalID string    `json:"professional_id"`
	ServiceID      string    `json:"service_id"`
	StartTime      string    `json:"start_time"`
	Reason         string    `json:"reason"`
	FailedAt       time.Time `json:"failed_at"`
}

func (BookingSubmissionFailedV1) EventType() string { return "booking.submission.failed.v1" }

func (e BookingSubmissionFailedV1) Professional() string { return e.ProfessionalID }

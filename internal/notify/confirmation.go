package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/thalesmenz/leelo-app-sub001/internal/booking"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

// ConfirmationConfig controls the booking e-mails.
type ConfirmationConfig struct {
	Subject string
	// OpsEmail receives an alert when a submission fails. Empty disables it.
	OpsEmail string
	Location *time.Location
}

// ConfirmationNotifier e-mails the patient once a pending appointment exists.
type ConfirmationNotifier struct {
	email  EmailSender
	cfg    ConfirmationConfig
	logger *logging.Logger
}

var _ booking.Notifier = (*ConfirmationNotifier)(nil)

// NewConfirmationNotifier wraps an email sender.
func NewConfirmationNotifier(email EmailSender, cfg ConfirmationConfig, logger *logging.Logger) *ConfirmationNotifier {
	if email == nil {
		panic("notify: email sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.Subject == "" {
		cfg.Subject = "Your appointment request was received"
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &ConfirmationNotifier{email: email, cfg: cfg, logger: logger}
}

// AppointmentCreated sends the request receipt to the patient.
func (n *ConfirmationNotifier) AppointmentCreated(ctx context.Context, appt *booking.Appointment, patient booking.PatientInput) error {
	if appt == nil || strings.TrimSpace(patient.Email) == "" {
		return nil
	}
	when := n.formatSlot(appt.StartTime)

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\n", patient.Name)
	fmt.Fprintf(&body, "We received your appointment request for %s.\n", when)
	body.WriteString("It is pending until the clinic confirms it. You will hear from us soon.\n\n")
	fmt.Fprintf(&body, "Reference: %s\n", appt.ID)

	err := n.email.Send(ctx, EmailMessage{
		To:      patient.Email,
		ToName:  patient.Name,
		Subject: n.cfg.Subject,
		Body:    body.String(),
	})
	if err != nil {
		return fmt.Errorf("notify: send confirmation: %w", err)
	}
	n.logger.Info("booking confirmation sent", "appointment_id", appt.ID)
	return nil
}

// SubmissionFailed alerts operators when OpsEmail is configured.
func (n *ConfirmationNotifier) SubmissionFailed(ctx context.Context, sessionID string, req booking.BookingRequest, cause error) error {
	if n.cfg.OpsEmail == "" {
		return nil
	}
	var body strings.Builder
	body.WriteString("A public booking could not be created.\n\n")
	fmt.Fprintf(&body, "Session: %s\n", sessionID)
	fmt.Fprintf(&body, "Professional: %s\n", req.ProfessionalID)
	fmt.Fprintf(&body, "Service: %s\n", req.ServiceID)
	fmt.Fprintf(&body, "Slot: %s\n", n.formatSlot(req.StartTime))
	fmt.Fprintf(&body, "Patient phone: %s\n", logging.RedactDigits(req.PatientPhone))
	fmt.Fprintf(&body, "Error: %v\n", cause)

	if err := n.email.Send(ctx, EmailMessage{
		To:      n.cfg.OpsEmail,
		Subject: "Booking submission failed",
		Body:    body.String(),
	}); err != nil {
		return fmt.Errorf("notify: send failure alert: %w", err)
	}
	return nil
}

func (n *ConfirmationNotifier) formatSlot(start string) string {
	t, err := booking.TimeSlot{Start: start}.StartTime(n.cfg.Location)
	if err != nil {
		return start
	}
	return t.Format("02/01/2006 15:04")
}

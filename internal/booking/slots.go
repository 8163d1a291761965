package booking

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/thalesmenz/leelo-app-sub001/internal/calendar"
	"github.com/thalesmenz/leelo-app-sub001/internal/observability/metrics"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

var bookingTracer = otel.Tracer("clinic.internal.booking")

// Ticket tags one slot fetch with the date it was issued for.
type Ticket struct {
	Generation uint64
	Date       calendar.Date
}

// SlotResult is the settled outcome of a fetch. Slots is never nil; a failed
// lookup yields an empty list together with Err.
type SlotResult struct {
	Ticket Ticket
	Slots  []TimeSlot
	Err    error
}

// SlotFetcher retrieves free slots for one booking session. Every Begin
// supersedes earlier tickets so late answers for an older date can be
// recognised and dropped.
type SlotFetcher struct {
	availability AvailabilityService
	timeout      time.Duration
	metrics      *metrics.BookingMetrics
	logger       *logging.Logger
	generation   atomic.Uint64
}

// NewSlotFetcher creates a fetcher. A zero timeout disables the per-call deadline.
func NewSlotFetcher(availability AvailabilityService, timeout time.Duration, m *metrics.BookingMetrics, logger *logging.Logger) *SlotFetcher {
	if availability == nil {
		panic("booking: availability service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SlotFetcher{
		availability: availability,
		timeout:      timeout,
		metrics:      m,
		logger:       logger,
	}
}

// Begin issues the ticket for a new date selection.
func (f *SlotFetcher) Begin(date calendar.Date) Ticket {
	return Ticket{Generation: f.generation.Add(1), Date: date}
}

// IsCurrent reports whether t belongs to the most recent selection.
func (f *SlotFetcher) IsCurrent(t Ticket) bool {
	return f.generation.Load() == t.Generation
}

// Fetch asks the availability collaborator for the ticket's date. The date
// goes out as local YYYY-MM-DD components. Failures resolve to an empty list.
func (f *SlotFetcher) Fetch(ctx context.Context, professionalID string, t Ticket) SlotResult {
	dateISO := t.Date.String()
	ctx, span := bookingTracer.Start(ctx, "booking.fetch_slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.professional_id", professionalID),
		attribute.String("clinic.date", dateISO),
	)

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	slots, err := f.availability.GetAvailableSlots(ctx, professionalID, dateISO)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slot lookup failed")
		f.metrics.ObserveSlotFetch("error", elapsed)
		f.logger.Warn("slot lookup failed",
			"professional_id", professionalID,
			"date", dateISO,
			"error", err,
		)
		return SlotResult{Ticket: t, Slots: []TimeSlot{}, Err: &RetrievalError{Op: "slot lookup", Err: err}}
	}
	if slots == nil {
		slots = []TimeSlot{}
	}
	outcome := "ok"
	if len(slots) == 0 {
		outcome = "empty"
	}
	f.metrics.ObserveSlotFetch(outcome, elapsed)
	span.SetAttributes(attribute.Int("clinic.slot_count", len(slots)))
	return SlotResult{Ticket: t, Slots: slots}
}

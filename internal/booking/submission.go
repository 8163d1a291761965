package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/thalesmenz/leelo-app-sub001/internal/observability/metrics"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

// SubmitGuard admits at most one submission per key at a time.
type SubmitGuard interface {
	// Acquire returns false when a submission for key is already running.
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Notifier is told about terminal submission outcomes. Implementations must
// not block the visitor for long; their errors are logged only.
type Notifier interface {
	AppointmentCreated(ctx context.Context, appt *Appointment, patient PatientInput) error
	SubmissionFailed(ctx context.Context, sessionID string, req BookingRequest, cause error) error
}

// LocalSubmitGuard is an in-process SubmitGuard.
type LocalSubmitGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewLocalSubmitGuard creates an empty guard.
func NewLocalSubmitGuard() *LocalSubmitGuard {
	return &LocalSubmitGuard{inFlight: make(map[string]struct{})}
}

func (g *LocalSubmitGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[key]; busy {
		return false, nil
	}
	g.inFlight[key] = struct{}{}
	return true, nil
}

func (g *LocalSubmitGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.inFlight, key)
	g.mu.Unlock()
	return nil
}

// SubmissionPipeline validates patient data, builds the booking request and
// issues exactly one creation call per confirmation.
type SubmissionPipeline struct {
	writer    AppointmentWriter
	guard     SubmitGuard
	notifiers []Notifier
	timeout   time.Duration
	metrics   *metrics.BookingMetrics
	logger    *logging.Logger
}

// PipelineOption customizes a SubmissionPipeline.
type PipelineOption func(*SubmissionPipeline)

// WithSubmitGuard replaces the in-process guard.
func WithSubmitGuard(g SubmitGuard) PipelineOption {
	return func(p *SubmissionPipeline) {
		if g != nil {
			p.guard = g
		}
	}
}

// WithNotifiers registers outcome notifiers.
func WithNotifiers(n ...Notifier) PipelineOption {
	return func(p *SubmissionPipeline) {
		for _, notifier := range n {
			if notifier != nil {
				p.notifiers = append(p.notifiers, notifier)
			}
		}
	}
}

// WithSubmitTimeout bounds each creation call.
func WithSubmitTimeout(d time.Duration) PipelineOption {
	return func(p *SubmissionPipeline) { p.timeout = d }
}

// WithPipelineMetrics records submission outcomes.
func WithPipelineMetrics(m *metrics.BookingMetrics) PipelineOption {
	return func(p *SubmissionPipeline) { p.metrics = m }
}

// NewSubmissionPipeline constructs a pipeline around the appointment writer.
func NewSubmissionPipeline(writer AppointmentWriter, logger *logging.Logger, opts ...PipelineOption) *SubmissionPipeline {
	if writer == nil {
		panic("booking: appointment writer required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	p := &SubmissionPipeline{
		writer: writer,
		guard:  NewLocalSubmitGuard(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Validate applies the patient-data rules.
func (p *SubmissionPipeline) Validate(patient PatientInput) ValidationResult {
	return Validate(patient)
}

// BuildRequest bundles the selections and the normalized patient data.
func (p *SubmissionPipeline) BuildRequest(professionalID string, svc Service, slot TimeSlot, patient PatientInput) BookingRequest {
	n := Normalize(patient)
	return BookingRequest{
		ProfessionalID:  professionalID,
		ServiceID:       svc.ID,
		PatientName:     n.Name,
		PatientPhone:    n.PhoneDigits,
		PatientIdentity: n.IDDigits,
		StartTime:       slot.Start,
		EndTime:         slot.End,
		Status:          StatusPending,
	}
}

// Submit creates the appointment. A second call for the same key while the
// first is running is rejected with ErrSubmissionInFlight and makes no
// network call.
func (p *SubmissionPipeline) Submit(ctx context.Context, key string, req BookingRequest, patient PatientInput) (*Appointment, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.session_id", key),
		attribute.String("clinic.professional_id", req.ProfessionalID),
		attribute.String("clinic.service_id", req.ServiceID),
	)

	acquired, err := p.guard.Acquire(ctx, key)
	if err != nil {
		span.RecordError(err)
		p.metrics.ObserveSubmission("guard_error", 0)
		return nil, &SubmissionError{Err: err}
	}
	if !acquired {
		p.metrics.ObserveSubmission("rejected_in_flight", 0)
		return nil, ErrSubmissionInFlight
	}
	defer func() {
		if err := p.guard.Release(context.WithoutCancel(ctx), key); err != nil {
			p.logger.Warn("submit guard release failed", "session_id", key, "error", err)
		}
	}()

	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	appt, err := p.writer.Create(callCtx, req)
	elapsed := time.Since(start).Seconds()
	if err == nil && appt == nil {
		err = errors.New("empty response from appointment writer")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "appointment creation failed")
		p.metrics.ObserveSubmission("failed", elapsed)
		p.logger.Error("appointment creation failed",
			"session_id", key,
			"professional_id", req.ProfessionalID,
			"patient_phone", logging.RedactDigits(req.PatientPhone),
			"error", err,
		)
		subErr := &SubmissionError{Err: err}
		for _, n := range p.notifiers {
			if nerr := n.SubmissionFailed(context.WithoutCancel(ctx), key, req, subErr); nerr != nil {
				p.logger.Warn("submission failure notifier failed", "session_id", key, "error", nerr)
			}
		}
		return nil, subErr
	}

	p.metrics.ObserveSubmission("created", elapsed)
	span.SetAttributes(attribute.String("clinic.appointment_id", appt.ID))
	p.logger.Info("appointment created",
		"session_id", key,
		"appointment_id", appt.ID,
		"professional_id", req.ProfessionalID,
		"start_time", req.StartTime,
	)
	for _, n := range p.notifiers {
		if nerr := n.AppointmentCreated(context.WithoutCancel(ctx), appt, Normalize(patient)); nerr != nil {
			p.logger.Warn("appointment notifier failed", "appointment_id", appt.ID, "error", nerr)
		}
	}
	return appt, nil
}

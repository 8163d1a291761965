package booking

import (
	"context"
	"sync"
	"time"

	"github.com/thalesmenz/leelo-app-sub001/internal/calendar"
	"github.com/thalesmenz/leelo-app-sub001/internal/observability/metrics"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

// Step is a wizard stage. Steps are linear and cannot be skipped.
type Step int

const (
	StepSelectDate Step = iota + 1
	StepSelectSlot
	StepSelectService
	StepEnterPatientData
	StepConfirmed
)

func (s Step) String() string {
	switch s {
	case StepSelectDate:
		return "select_date"
	case StepSelectSlot:
		return "select_slot"
	case StepSelectService:
		return "select_service"
	case StepEnterPatientData:
		return "enter_patient_data"
	case StepConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// State is the wizard's selection state.
type State struct {
	Step            Step          `json:"step"`
	SelectedDate    calendar.Date `json:"selected_date"`
	SelectedSlot    *TimeSlot     `json:"selected_slot,omitempty"`
	SelectedService *Service      `json:"selected_service,omitempty"`
	Patient         PatientInput  `json:"patient"`
	Submitting      bool          `json:"submitting"`
}

// View is an immutable snapshot of a session for rendering.
type View struct {
	SessionID    string        `json:"session_id"`
	Professional Professional  `json:"professional"`
	State        State         `json:"state"`
	Slots        []TimeSlot    `json:"slots"`
	SlotsLoading bool          `json:"slots_loading"`
	SlotsFailed  bool          `json:"slots_failed"`
	NoSlots      bool          `json:"no_slots"`
	Services     []Service     `json:"services"`
	Appointment  *Appointment  `json:"appointment,omitempty"`
	Notice       string        `json:"notice,omitempty"`
	Today        calendar.Date `json:"today"`
}

// Controller drives one visitor's booking session. Transitions run
// synchronously under the session lock; slot lookups and the creation call
// run outside it.
type Controller struct {
	id           string
	professional Professional
	fetcher      *SlotFetcher
	pipeline     *SubmissionPipeline
	metrics      *metrics.BookingMetrics
	logger       *logging.Logger
	now          func() time.Time

	mu           sync.Mutex
	state        State
	services     []Service
	slots        []TimeSlot
	slotsLoading bool
	slotsErr     error
	appointment  *Appointment
	notice       string
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithClock sets the source of "now"; its location is the visitor's local zone.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// WithControllerMetrics records transition outcomes.
func WithControllerMetrics(m *metrics.BookingMetrics) ControllerOption {
	return func(c *Controller) { c.metrics = m }
}

// WithLogger sets the session logger.
func WithLogger(l *logging.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController starts a session at StepSelectDate with nothing selected.
// Inactive services are dropped.
func NewController(id string, professional Professional, services []Service, fetcher *SlotFetcher, pipeline *SubmissionPipeline, opts ...ControllerOption) *Controller {
	if fetcher == nil || pipeline == nil {
		panic("booking: slot fetcher and submission pipeline required")
	}
	c := &Controller{
		id:           id,
		professional: professional,
		fetcher:      fetcher,
		pipeline:     pipeline,
		logger:       logging.Default(),
		now:          time.Now,
		state:        State{Step: StepSelectDate},
		services:     ActiveServices(services),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("session_id", id, "professional_id", professional.ID)
	return c
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Now returns the controller's current local time.
func (c *Controller) Now() time.Time { return c.now() }

// ChooseDate selects d, clears the slot and moves to StepSelectSlot. It is
// allowed from every step except Confirmed. A slot lookup tagged with d is
// started; the returned channel closes once that lookup has been applied or
// discarded as stale.
func (c *Controller) ChooseDate(ctx context.Context, d calendar.Date) (<-chan struct{}, error) {
	c.mu.Lock()
	err := c.checkChooseDate(d)
	if err != nil {
		c.mu.Unlock()
		c.metrics.ObserveTransition("choose_date", err)
		return nil, err
	}
	c.state.SelectedDate = d
	c.state.SelectedSlot = nil
	c.state.Step = StepSelectSlot
	c.slots = nil
	c.slotsLoading = true
	c.slotsErr = nil
	c.notice = ""
	ticket := c.fetcher.Begin(d)
	c.mu.Unlock()
	c.metrics.ObserveTransition("choose_date", nil)

	done := make(chan struct{})
	fetchCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		c.applySlots(c.fetcher.Fetch(fetchCtx, c.professional.ID, ticket))
	}()
	return done, nil
}

func (c *Controller) checkChooseDate(d calendar.Date) error {
	switch {
	case c.state.Step == StepConfirmed:
		return ErrInvalidTransition
	case c.state.Submitting:
		return ErrSubmissionInFlight
	case d.IsZero():
		return ErrMissingPrerequisite
	case d.Before(calendar.DateOf(c.now())):
		return ErrPastDate
	}
	return nil
}

func (c *Controller) applySlots(res SlotResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fetcher.IsCurrent(res.Ticket) || c.state.SelectedDate != res.Ticket.Date {
		c.metrics.ObserveStaleSlots()
		c.logger.Debug("discarding stale slot result",
			"date", res.Ticket.Date.String(),
			"selected_date", c.state.SelectedDate.String(),
		)
		return
	}
	c.slots = res.Slots
	c.slotsLoading = false
	c.slotsErr = res.Err
	if res.Err != nil {
		c.notice = "We could not load available times. Please pick the date again or choose another date."
	}
}

// ChooseSlot selects s and moves to StepSelectService. The slot list must
// have settled and contain s.
func (c *Controller) ChooseSlot(s TimeSlot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.checkChooseSlot(s)
	c.metrics.ObserveTransition("choose_slot", err)
	if err != nil {
		return err
	}
	slot := s
	c.state.SelectedSlot = &slot
	c.state.Step = StepSelectService
	return nil
}

func (c *Controller) checkChooseSlot(s TimeSlot) error {
	if c.state.Step != StepSelectSlot {
		return ErrInvalidTransition
	}
	if c.state.SelectedDate.IsZero() {
		return ErrMissingPrerequisite
	}
	if c.slotsLoading {
		return ErrSlotsLoading
	}
	for _, candidate := range c.slots {
		if candidate == s {
			return nil
		}
	}
	return ErrUnknownSlot
}

// ChooseService selects an active service and moves to StepEnterPatientData.
func (c *Controller) ChooseService(svc Service) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	chosen, err := c.checkChooseService(svc)
	c.metrics.ObserveTransition("choose_service", err)
	if err != nil {
		return err
	}
	c.state.SelectedService = &chosen
	c.state.Step = StepEnterPatientData
	return nil
}

func (c *Controller) checkChooseService(svc Service) (Service, error) {
	if c.state.Step != StepSelectService {
		return Service{}, ErrInvalidTransition
	}
	if c.state.SelectedDate.IsZero() || c.state.SelectedSlot == nil {
		return Service{}, ErrMissingPrerequisite
	}
	if !svc.Active {
		return Service{}, ErrServiceInactive
	}
	if len(c.services) == 0 {
		return svc, nil
	}
	for _, listed := range c.services {
		if listed.ID == svc.ID {
			return listed, nil
		}
	}
	return Service{}, ErrServiceInactive
}

// Back returns to the previous step from steps 2 through 4. It is refused
// at the first step, at Confirmed and while a submission is running.
func (c *Controller) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	switch {
	case c.state.Submitting:
		err = ErrSubmissionInFlight
	case c.state.Step < StepSelectSlot || c.state.Step > StepEnterPatientData:
		err = ErrInvalidTransition
	}
	c.metrics.ObserveTransition("back", err)
	if err != nil {
		return err
	}
	c.state.Step--
	c.notice = ""
	return nil
}

// Submit validates patient and creates the pending appointment. Invalid data
// never reaches the network. On any failure the wizard stays at
// StepEnterPatientData with the entered values kept for a retry.
func (c *Controller) Submit(ctx context.Context, patient PatientInput) (*Appointment, error) {
	c.mu.Lock()
	if err := c.checkSubmit(); err != nil {
		c.mu.Unlock()
		c.metrics.ObserveTransition("submit", err)
		return nil, err
	}
	c.state.Patient = patient
	if result := c.pipeline.Validate(patient); !result.Valid() {
		c.notice = "Please review the highlighted fields."
		c.mu.Unlock()
		err := result.Err()
		c.metrics.ObserveTransition("submit", err)
		c.metrics.ObserveSubmission("validation_failed", 0)
		return nil, err
	}
	req := c.pipeline.BuildRequest(c.professional.ID, *c.state.SelectedService, *c.state.SelectedSlot, patient)
	c.state.Submitting = true
	c.notice = ""
	c.mu.Unlock()

	appt, err := c.pipeline.Submit(context.WithoutCancel(ctx), c.id, req, patient)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Submitting = false
	c.metrics.ObserveTransition("submit", err)
	if err != nil {
		c.notice = "We could not confirm your appointment. Please try again."
		return nil, err
	}
	c.appointment = appt
	c.state.Step = StepConfirmed
	return appt, nil
}

func (c *Controller) checkSubmit() error {
	switch {
	case c.state.Step != StepEnterPatientData:
		return ErrInvalidTransition
	case c.state.Submitting:
		return ErrSubmissionInFlight
	case c.state.SelectedDate.IsZero() || c.state.SelectedSlot == nil || c.state.SelectedService == nil:
		return ErrMissingPrerequisite
	}
	return nil
}

// SetServices replaces the offered services, keeping only active ones.
func (c *Controller) SetServices(services []Service) {
	c.mu.Lock()
	c.services = ActiveServices(services)
	c.mu.Unlock()
}

// View returns a snapshot of the session.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	if st.SelectedSlot != nil {
		slot := *st.SelectedSlot
		st.SelectedSlot = &slot
	}
	if st.SelectedService != nil {
		svc := *st.SelectedService
		st.SelectedService = &svc
	}
	v := View{
		SessionID:    c.id,
		Professional: c.professional,
		State:        st,
		Slots:        append([]TimeSlot{}, c.slots...),
		SlotsLoading: c.slotsLoading,
		SlotsFailed:  c.slotsErr != nil,
		Services:     append([]Service{}, c.services...),
		Notice:       c.notice,
		Today:        calendar.DateOf(c.now()),
	}
	v.NoSlots = st.Step == StepSelectSlot && !c.slotsLoading && len(c.slots) == 0
	if c.appointment != nil {
		appt := *c.appointment
		v.Appointment = &appt
	}
	return v
}

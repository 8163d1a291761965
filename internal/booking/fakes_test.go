package booking

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

var testNow = time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)

func quietLogger() *logging.Logger {
	return logging.NewWithWriter("error", io.Discard)
}

func testServices() []Service {
	return []Service{
		{ID: "svc-1", Name: "Consulta", DurationMinutes: 30, Price: 150, Active: true},
		{ID: "svc-2", Name: "Retorno", DurationMinutes: 20, Price: 80, Active: false},
	}
}

func validPatient() PatientInput {
	return PatientInput{
		Name:        "Maria Silva",
		Email:       "maria@example.com",
		PhoneDigits: "11999998888",
		IDDigits:    "12345678901",
	}
}

type fakeDirectory struct {
	prof *Professional
	err  error
}

func (f *fakeDirectory) GetByID(_ context.Context, id string) (*Professional, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.prof == nil {
		return &Professional{ID: id}, nil
	}
	p := *f.prof
	return &p, nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	services []Service
	err      error
	calls    int
}

func (f *fakeCatalog) GetByProfessional(_ context.Context, _ string) ([]Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]Service{}, f.services...), nil
}

type fakeAvailability struct {
	mu    sync.Mutex
	slots map[string][]TimeSlot
	gates map[string]chan struct{}
	err   error
	dates []string
}

func newFakeAvailability() *fakeAvailability {
	return &fakeAvailability{
		slots: map[string][]TimeSlot{},
		gates: map[string]chan struct{}{},
	}
}

// block makes lookups for date wait until the returned channel is closed.
func (f *fakeAvailability) block(date string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[date] = gate
	return gate
}

func (f *fakeAvailability) GetAvailableSlots(ctx context.Context, _ string, dateISO string) ([]TimeSlot, error) {
	f.mu.Lock()
	f.dates = append(f.dates, dateISO)
	gate := f.gates[dateISO]
	slots := append([]TimeSlot{}, f.slots[dateISO]...)
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (f *fakeAvailability) requestedDates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.dates...)
}

type fakeWriter struct {
	mu      sync.Mutex
	reqs    []BookingRequest
	err     error
	nilAppt bool
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeWriter) Create(_ context.Context, req BookingRequest) (*Appointment, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	gate, entered, err, nilAppt := f.gate, f.entered, f.err, f.nilAppt
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if nilAppt {
		return nil, nil
	}
	return &Appointment{
		ID:             "appt-1",
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		PatientName:    req.PatientName,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Status:         req.Status,
	}, nil
}

func (f *fakeWriter) calls() []BookingRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]BookingRequest{}, f.reqs...)
}

type recordingNotifier struct {
	mu       sync.Mutex
	created  []*Appointment
	patients []PatientInput
	failures []error
	err      error
}

func (n *recordingNotifier) AppointmentCreated(_ context.Context, appt *Appointment, patient PatientInput) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, appt)
	n.patients = append(n.patients, patient)
	return n.err
}

func (n *recordingNotifier) SubmissionFailed(_ context.Context, _ string, _ BookingRequest, cause error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, cause)
	return n.err
}

var errBackendDown = errors.New("backend unavailable")

package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalesmenz/leelo-app-sub001/internal/booking"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

type fakeSQS struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func fixClock(t *testing.T, now time.Time) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = prev })
}

func newTestPublisher(api *fakeSQS) *SQSPublisher {
	return NewSQSPublisher(api, "http://localhost:4566/000000000000/booking-events", logging.NewWithWriter("error", io.Discard))
}

func decodeEnvelope(t *testing.T, in *sqs.SendMessageInput) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &env))
	return env
}

func TestNewEnvelope(t *testing.T) {
	fixed := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.FixedZone("BRT", -3*60*60))
	fixClock(t, fixed)

	env, err := NewEnvelope(AppointmentRequestedV1{AppointmentID: "appt-1", ProfessionalID: " prof-1 "}, "appt-1",
		WithEventID("9a20d7d1-bf6a-4d33-bd55-5d25a816f1a8"))
	require.NoError(t, err)
	assert.Equal(t, "9a20d7d1-bf6a-4d33-bd55-5d25a816f1a8", env.ID)
	assert.Equal(t, "booking.appointment.requested.v1", env.Type)
	assert.Equal(t, 1, env.Version)
	assert.Equal(t, "prof-1", env.ProfessionalID)
	assert.Equal(t, "appt-1", env.CorrelationID)
	assert.Equal(t, fixed.UTC(), env.OccurredAt)
	assert.Equal(t, time.UTC, env.OccurredAt.Location())
	assert.Contains(t, string(env.Payload), `"appointment_id":"appt-1"`)
}

func TestNewEnvelopeGeneratesIDs(t *testing.T) {
	a, err := NewEnvelope(BookingSubmissionFailedV1{ProfessionalID: "prof-1"}, "")
	require.NoError(t, err)
	b, err := NewEnvelope(BookingSubmissionFailedV1{ProfessionalID: "prof-1"}, "")
	require.NoError(t, err)

	_, err = uuid.Parse(a.ID)
	assert.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

type unversionedEvent struct{}

func (unversionedEvent) EventType() string    { return "booking.something" }
func (unversionedEvent) Professional() string { return "prof-1" }

func TestNewEnvelopeRejectsInvalidInput(t *testing.T) {
	_, err := NewEnvelope(nil, "")
	assert.ErrorIs(t, err, errNilEvent)

	_, err = NewEnvelope(AppointmentRequestedV1{}, "")
	assert.ErrorIs(t, err, errMissingProfessional)

	_, err = NewEnvelope(unversionedEvent{}, "")
	assert.ErrorIs(t, err, errUnversionedEventType)
}

func TestSQSPublisher_Publish(t *testing.T) {
	api := &fakeSQS{}
	p := newTestPublisher(api)

	env, err := p.Publish(context.Background(), "corr", BookingSubmissionFailedV1{SessionID: "sess-1", ProfessionalID: "prof-1"})
	require.NoError(t, err)
	require.Len(t, api.inputs, 1)

	in := api.inputs[0]
	assert.Equal(t, "http://localhost:4566/000000000000/booking-events", aws.ToString(in.QueueUrl))
	assert.Equal(t, "booking.submission.failed.v1", aws.ToString(in.MessageAttributes["event_type"].StringValue))
	assert.Equal(t, "prof-1", aws.ToString(in.MessageAttributes["professional_id"].StringValue))
	assert.Equal(t, env.ID, decodeEnvelope(t, in).ID)
}

func TestSQSPublisher_SendError(t *testing.T) {
	p := newTestPublisher(&fakeSQS{err: errors.New("queue gone")})
	_, err := p.Publish(context.Background(), "", BookingSubmissionFailedV1{ProfessionalID: "prof-1"})
	assert.ErrorContains(t, err, "queue gone")
}

func TestSQSPublisher_InvalidEventIsNotSent(t *testing.T) {
	api := &fakeSQS{}
	_, err := newTestPublisher(api).Publish(context.Background(), "", BookingSubmissionFailedV1{})
	assert.ErrorIs(t, err, errMissingProfessional)
	assert.Empty(t, api.inputs)
}

func TestBookingPublisher_AppointmentCreated(t *testing.T) {
	fixClock(t, time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC))
	api := &fakeSQS{}
	b := NewBookingPublisher(newTestPublisher(api))

	err := b.AppointmentCreated(context.Background(), &booking.Appointment{
		ID:             "appt-1",
		ProfessionalID: "prof-1",
		ServiceID:      "svc-1",
		StartTime:      "2025-06-12T09:00:00",
		EndTime:        "2025-06-12T09:30:00",
		Status:         booking.StatusPending,
	}, booking.PatientInput{Name: "Maria", Email: "maria@example.com", PhoneDigits: "11999998888", IDDigits: "12345678901"})
	require.NoError(t, err)
	require.Len(t, api.inputs, 1)

	env := decodeEnvelope(t, api.inputs[0])
	assert.Equal(t, "prof-1", env.ProfessionalID)
	assert.Equal(t, "appt-1", env.CorrelationID)

	var evt AppointmentRequestedV1
	require.NoError(t, json.Unmarshal(env.Payload, &evt))
	assert.Equal(t, "11999998888", evt.PatientPhone)
	assert.Equal(t, "2025-06-12T09:00:00", evt.StartTime)
	assert.Equal(t, "pending", evt.Status)
	assert.NotContains(t, string(env.Payload), "12345678901", "identity number is not published")
}

func TestBookingPublisher_SubmissionFailed(t *testing.T) {
	api := &fakeSQS{}
	b := NewBookingPublisher(newTestPublisher(api))

	err := b.SubmissionFailed(context.Background(), "sess-1", booking.BookingRequest{ProfessionalID: "prof-1"}, errors.New("409 slot taken"))
	require.NoError(t, err)

	env := decodeEnvelope(t, api.inputs[0])
	assert.Equal(t, "sess-1", env.CorrelationID)
	var evt BookingSubmissionFailedV1
	require.NoError(t, json.Unmarshal(env.Payload, &evt))
	assert.Equal(t, "409 slot taken", evt.Reason)
}

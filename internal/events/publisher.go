package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/thalesmenz/leelo-app-sub001/internal/booking"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends event envelopes to an SQS queue (AWS or LocalStack).
type SQSPublisher struct {
	client   sqsAPI
	queueURL string
	logger   *logging.Logger
}

// NewSQSPublisher creates a publisher. client is usually a *sqs.Client.
func NewSQSPublisher(client sqsAPI, queueURL string, logger *logging.Logger) *SQSPublisher {
	if client == nil {
		panic("events: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("events: SQS queueURL cannot be empty")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SQSPublisher{client: client, queueURL: queueURL, logger: logger}
}

// Publish wraps evt in an envelope and sends it. Type and professional id
// travel as message attributes so consumers can filter without decoding the
// body.
func (p *SQSPublisher) Publish(ctx context.Context, correlationID string, evt Event, opts ...EnvelopeOption) (Envelope, error) {
	env, err := NewEnvelope(evt, correlationID, opts...)
	if err != nil {
		return Envelope{}, err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal envelope: %w", err)
	}
	out, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type":      {DataType: aws.String("String"), StringValue: aws.String(env.Type)},
			"professional_id": {DataType: aws.String("String"), StringValue: aws.String(env.ProfessionalID)},
		},
	})
	if err != nil {
		return Envelope{}, fmt.Errorf("events: failed to send SQS message: %w", err)
	}
	p.logger.Debug("event published", "event_id", env.ID, "type", env.Type, "message_id", aws.ToString(out.MessageId))
	return env, nil
}

// BookingPublisher turns submission outcomes into events.
type BookingPublisher struct {
	publisher *SQSPublisher
}

var _ booking.Notifier = (*BookingPublisher)(nil)

// NewBookingPublisher adapts p to booking.Notifier.
func NewBookingPublisher(p *SQSPublisher) *BookingPublisher {
	if p == nil {
		panic("events: publisher required")
	}
	return &BookingPublisher{publisher: p}
}

func (b *BookingPublisher) AppointmentCreated(ctx context.Context, appt *booking.Appointment, patient booking.PatientInput) error {
	evt := AppointmentRequestedV1{
		AppointmentID:  appt.ID,
		ProfessionalID: appt.ProfessionalID,
		ServiceID:      appt.ServiceID,
		PatientName:    patient.Name,
		PatientEmail:   patient.Email,
		PatientPhone:   patient.PhoneDigits,
		StartTime:      appt.StartTime,
		EndTime:        appt.EndTime,
		Status:         appt.Status,
		RequestedAt:    nowFunc().UTC(),
	}
	_, err := b.publisher.Publish(ctx, appt.ID, evt)
	return err
}

func (b *BookingPublisher) SubmissionFailed(ctx context.Context, sessionID string, req booking.BookingRequest, cause error) error {
	evt := BookingSubmissionFailedV1{
		SessionID:      sessionID,
		ProfessionalID: req.ProfessionalID,
		ServiceID:      req.ServiceID,
		StartTime:      req.StartTime,
		Reason:         cause.Error(),
		FailedAt:       nowFunc().UTC(),
	}
	_, err := b.publisher.Publish(ctx, sessionID, evt)
	return err
}

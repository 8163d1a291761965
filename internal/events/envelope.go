// Package events defines the booking domain events and publishes them to
// downstream consumers.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a versioned booking event. Types end in ".v<N>" and every event
// belongs to the professional whose calendar it touches.
type Event interface {
	EventType() string
	Professional() string
}

// Envelope is the message body put on the queue. Consumers route on Type and
// ProfessionalID and decode Payload according to Type.
type Envelope struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Version        int             `json:"version"`
	ProfessionalID string          `json:"professional_id"`
	CorrelationID  string          `json:"correlation_id,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
	Payload        json.RawMessage `json:"payload"`
}

// EnvelopeOption adjusts a new envelope.
type EnvelopeOption func(*Envelope)

// WithEventID pins the envelope id, for replays and tests.
func WithEventID(id string) EnvelopeOption {
	return func(e *Envelope) {
		if id != "" {
			e.ID = id
		}
	}
}

// WithOccurredAt overrides the event time.
func WithOccurredAt(ts time.Time) EnvelopeOption {
	return func(e *Envelope) {
		if !ts.IsZero() {
			e.OccurredAt = ts.UTC()
		}
	}
}

var (
	errNilEvent             = errors.New("events: event required")
	errMissingProfessional  = errors.New("events: professional id required")
	errUnversionedEventType = errors.New("events: event type must end in .v<N>")
	nowFunc                 = time.Now
)

// NewEnvelope wraps evt. correlationID ties the event to the appointment or
// session that produced it.
func NewEnvelope(evt Event, correlationID string, opts ...EnvelopeOption) (Envelope, error) {
	if evt == nil {
		return Envelope{}, errNilEvent
	}
	professionalID := strings.TrimSpace(evt.Professional())
	if professionalID == "" {
		return Envelope{}, errMissingProfessional
	}
	eventType := strings.TrimSpace(evt.EventType())
	version, err := typeVersion(eventType)
	if err != nil {
		return Envelope{}, err
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return Envelope{}, fmt.Errorf("events: marshal %s: %w", eventType, err)
	}
	env := Envelope{
		ID:             uuid.NewString(),
		Type:           eventType,
		Version:        version,
		ProfessionalID: professionalID,
		CorrelationID:  strings.TrimSpace(correlationID),
		OccurredAt:     nowFunc().UTC(),
		Payload:        payload,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&env)
		}
	}
	return env, nil
}

func typeVersion(eventType string) (int, error) {
	i := strings.LastIndex(eventType, ".v")
	if i <= 0 {
		return 0, fmt.Errorf("%w: %q", errUnversionedEventType, eventType)
	}
	v, err := strconv.Atoi(eventType[i+2:])
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%w: %q", errUnversionedEventType, eventType)
	}
	return v, nil
}

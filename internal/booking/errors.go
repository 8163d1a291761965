package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidTransition is returned when a transition is not allowed from
	// the current step.
	ErrInvalidTransition = errors.New("booking: transition not allowed from current step")

	// ErrMissingPrerequisite is returned when an earlier selection is missing.
	ErrMissingPrerequisite = errors.New("booking: missing prerequisite selection")

	// ErrSlotsLoading is returned when a slot is chosen while slots are still loading.
	ErrSlotsLoading = errors.New("booking: slots are still loading")

	// ErrUnknownSlot is returned when the chosen slot is not in the current list.
	ErrUnknownSlot = errors.New("booking: slot is not available for the selected date")

	// ErrServiceInactive is returned for inactive or unknown services.
	ErrServiceInactive = errors.New("booking: service is not available")

	// ErrPastDate is returned when a date before today is chosen.
	ErrPastDate = errors.New("booking: date is in the past")

	// ErrSubmissionInFlight is returned when a submit is already running.
	ErrSubmissionInFlight = errors.New("booking: submission already in progress")

	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("booking: session not found")

	// ErrProfessionalNotFound is returned when the directory has no such professional.
	ErrProfessionalNotFound = errors.New("booking: professional not found")
)

// ValidationError carries field-scoped messages for patient data.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "booking: invalid patient data (" + strings.Join(parts, "; ") + ")"
}

// RetrievalError wraps a failed profile, catalog or slot lookup.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("booking: %s failed: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// SubmissionError wraps a rejected or unreachable appointment creation.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("booking: appointment creation failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

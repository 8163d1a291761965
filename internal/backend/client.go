// Package backend talks to the clinic's scheduling API: professional
// profiles, service catalogs, availability and appointment creation.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/thalesmenz/leelo-app-sub001/internal/booking"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

const (
	defaultBaseURL = "http://localhost:3000/api"
	defaultTimeout = 10 * time.Second
)

var tracer = otel.Tracer("clinic.internal.backend")

// ErrNotFound is returned for 404 responses on lookups.
var ErrNotFound = errors.New("backend: resource not found")

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend: API returned %d: %s", e.StatusCode, e.Body)
}

// Client implements the booking collaborators over REST.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *logging.Logger
}

var (
	_ booking.ProfessionalDirectory = (*Client)(nil)
	_ booking.ServiceCatalog        = (*Client)(nil)
	_ booking.AvailabilityService   = (*Client)(nil)
	_ booking.AppointmentWriter     = (*Client)(nil)
)

// Option customizes a Client.
type Option func(*Client)

// WithAPIKey sends key as a bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = strings.TrimSpace(key) }
}

// WithTimeout overrides the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient constructs an API client rooted at baseURL.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetByID fetches a professional's public profile.
func (c *Client) GetByID(ctx context.Context, id string) (*booking.Professional, error) {
	path := "/professionals/" + url.PathEscape(id)
	var prof booking.Professional
	if err := c.doJSON(ctx, "backend.get_professional", http.MethodGet, path, nil, &prof); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", booking.ErrProfessionalNotFound, id)
		}
		return nil, fmt.Errorf("get professional: %w", err)
	}
	if prof.ID == "" {
		prof.ID = id
	}
	return &prof, nil
}

// GetByProfessional lists every service of a professional, active or not.
func (c *Client) GetByProfessional(ctx context.Context, professionalID string) ([]booking.Service, error) {
	path := fmt.Sprintf("/professionals/%s/services", url.PathEscape(professionalID))
	var services []booking.Service
	if err := c.doJSON(ctx, "backend.list_services", http.MethodGet, path, nil, &services); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}

// GetAvailableSlots returns free slots for dateISO (YYYY-MM-DD).
func (c *Client) GetAvailableSlots(ctx context.Context, professionalID, dateISO string) ([]booking.TimeSlot, error) {
	q := url.Values{}
	q.Set("date", dateISO)
	path := fmt.Sprintf("/professionals/%s/available-slots?%s", url.PathEscape(professionalID), q.Encode())

	var slots []booking.TimeSlot
	if err := c.doJSON(ctx, "backend.available_slots", http.MethodGet, path, nil, &slots); err != nil {
		return nil, fmt.Errorf("get availability: %w", err)
	}
	if slots == nil {
		slots = []booking.TimeSlot{}
	}
	return slots, nil
}

// Create posts a pending appointment.
func (c *Client) Create(ctx context.Context, req booking.BookingRequest) (*booking.Appointment, error) {
	var appt booking.Appointment
	if err := c.doJSON(ctx, "backend.create_appointment", http.MethodPost, "/appointments", req, &appt); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	if appt.ID == "" {
		return nil, errors.New("create appointment: response has no id")
	}
	return &appt, nil
}

func (c *Client) doJSON(ctx context.Context, spanName, method, path string, body, out any) error {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	)

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		span.SetStatus(codes.Error, resp.Status)
		c.logger.Warn("backend API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return &StatusError{StatusCode: resp.StatusCode, Body: msg}
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

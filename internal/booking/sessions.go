package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thalesmenz/leelo-app-sub001/internal/observability/metrics"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

// SessionsConfig wires the collaborators shared by every session.
type SessionsConfig struct {
	Directory        ProfessionalDirectory
	Catalog          ServiceCatalog
	Availability     AvailabilityService
	Pipeline         *SubmissionPipeline
	TTL              time.Duration
	SlotFetchTimeout time.Duration
	Location         *time.Location
	Metrics          *metrics.BookingMetrics
	Logger           *logging.Logger
	Now              func() time.Time
}

type sessionEntry struct {
	ctl            *Controller
	professionalID string
	lastSeen       time.Time
}

// Sessions keeps the live booking sessions in memory and expires idle ones.
type Sessions struct {
	cfg     SessionsConfig
	mu      sync.Mutex
	entries map[string]*sessionEntry
}

// NewSessions creates a session registry.
func NewSessions(cfg SessionsConfig) *Sessions {
	if cfg.Directory == nil || cfg.Catalog == nil || cfg.Availability == nil || cfg.Pipeline == nil {
		panic("booking: sessions require directory, catalog, availability and pipeline")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Sessions{cfg: cfg, entries: make(map[string]*sessionEntry)}
}

// Create opens a session for professionalID. Catalog failures degrade to an
// empty service list; a directory failure other than not-found degrades to a
// bare profile.
func (s *Sessions) Create(ctx context.Context, professionalID string, loc *time.Location) (*Controller, error) {
	if loc == nil {
		loc = s.cfg.Location
	}
	logger := s.cfg.Logger

	professional := Professional{ID: professionalID}
	prof, err := s.cfg.Directory.GetByID(ctx, professionalID)
	switch {
	case errors.Is(err, ErrProfessionalNotFound):
		return nil, err
	case err != nil:
		logger.Warn("professional lookup failed", "professional_id", professionalID, "error", err)
	case prof != nil:
		professional = *prof
		professional.ID = professionalID
	}

	services, err := s.cfg.Catalog.GetByProfessional(ctx, professionalID)
	if err != nil {
		logger.Warn("service catalog lookup failed", "professional_id", professionalID, "error", err)
		services = nil
	}

	id := uuid.NewString()
	now := s.cfg.Now
	ctl := NewController(id, professional, services,
		NewSlotFetcher(s.cfg.Availability, s.cfg.SlotFetchTimeout, s.cfg.Metrics, logger),
		s.cfg.Pipeline,
		WithClock(func() time.Time { return now().In(loc) }),
		WithControllerMetrics(s.cfg.Metrics),
		WithLogger(logger),
	)

	s.mu.Lock()
	s.entries[id] = &sessionEntry{ctl: ctl, professionalID: professionalID, lastSeen: now()}
	n := len(s.entries)
	s.mu.Unlock()
	s.cfg.Metrics.SetActiveSessions(n)

	logger.Info("booking session created", "session_id", id, "professional_id", professionalID, "services", len(ctl.View().Services))
	return ctl, nil
}

// Get returns the live session, refreshing its idle timer.
func (s *Sessions) Get(id, professionalID string) (*Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok || entry.professionalID != professionalID {
		return nil, ErrSessionNotFound
	}
	now := s.cfg.Now()
	if now.Sub(entry.lastSeen) > s.cfg.TTL {
		delete(s.entries, id)
		return nil, ErrSessionNotFound
	}
	entry.lastSeen = now
	return entry.ctl, nil
}

// RefreshServices reloads the catalog for a session whose list is empty,
// letting a visitor recover from an earlier catalog failure by navigating.
func (s *Sessions) RefreshServices(ctx context.Context, ctl *Controller) {
	if len(ctl.View().Services) > 0 {
		return
	}
	services, err := s.cfg.Catalog.GetByProfessional(ctx, ctl.professional.ID)
	if err != nil {
		s.cfg.Logger.Warn("service catalog retry failed", "session_id", ctl.ID(), "error", err)
		return
	}
	ctl.SetServices(services)
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Sessions) Sweep() int {
	cutoff := s.cfg.Now().Add(-s.cfg.TTL)
	s.mu.Lock()
	removed := 0
	for id, entry := range s.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
	}
	n := len(s.entries)
	s.mu.Unlock()
	s.cfg.Metrics.SetActiveSessions(n)
	return removed
}

// Run sweeps periodically until ctx is done.
func (s *Sessions) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				s.cfg.Logger.Info("expired booking sessions", "removed", removed)
			}
		}
	}
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
